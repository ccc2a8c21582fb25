package docsource_test

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/m-mizutani/cultra/pkg/adapter"
	"github.com/m-mizutani/cultra/pkg/docsource"
	"github.com/m-mizutani/cultra/pkg/model"
	"github.com/m-mizutani/gt"
)

const documentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p>
      <w:pPr><w:tabs><w:tab w:val="left" w:pos="720"/></w:tabs></w:pPr>
      <w:r><w:t>Cultural Translator</w:t></w:r>
    </w:p>
    <w:p/>
    <w:p>
      <w:r><w:t xml:space="preserve">In Japan, </w:t></w:r>
      <w:r><w:rPr><w:b/></w:rPr><w:t>bowing</w:t></w:r>
      <w:r><w:t xml:space="preserve"> shows respect.</w:t></w:r>
    </w:p>
    <w:p>
      <w:r><w:t>Gesture</w:t><w:tab/><w:t>Meaning</w:t></w:r>
    </w:p>
    <w:tbl><w:tr><w:tc><w:p><w:r><w:t>Thumbs up</w:t></w:r><w:br/><w:r><w:t>Rude in parts of the Middle East</w:t></w:r></w:p></w:tc></w:tr></w:tbl>
  </w:body>
</w:document>`

func buildDocx(t *testing.T, body string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	w, err := zw.Create("[Content_Types].xml")
	gt.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0"?><Types/>`))
	gt.NoError(t, err)

	if body != "" {
		w, err = zw.Create("word/document.xml")
		gt.NoError(t, err)
		_, err = w.Write([]byte(body))
		gt.NoError(t, err)
	}

	gt.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestParseDocx(t *testing.T) {
	paragraphs, err := docsource.ParseDocx(buildDocx(t, documentXML))
	gt.NoError(t, err)
	gt.Equal(t, paragraphs, []string{
		"Cultural Translator",
		"In Japan, bowing shows respect.",
		"Gesture\tMeaning",
		"Thumbs up\nRude in parts of the Middle East",
	})
}

func TestParseDocxInvalid(t *testing.T) {
	t.Run("not a zip", func(t *testing.T) {
		_, err := docsource.ParseDocx([]byte("plain text"))
		gt.Error(t, err)
	})

	t.Run("no body", func(t *testing.T) {
		_, err := docsource.ParseDocx(buildDocx(t, ""))
		gt.Error(t, err)
	})

	t.Run("broken xml", func(t *testing.T) {
		_, err := docsource.ParseDocx(buildDocx(t, "<w:document><w:body><w:p>"))
		gt.Error(t, err)
	})
}

func TestParseText(t *testing.T) {
	text := "Title\r\n\r\nFirst line\nsecond line\n\n\n  \nLast paragraph\n"
	gt.Equal(t, docsource.ParseText(text), []string{
		"Title",
		"First line\nsecond line",
		"Last paragraph",
	})
	gt.A(t, docsource.ParseText(" \n\n ")).Length(0)
}

func TestLoadLocal(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	docxPath := filepath.Join(dir, "Cultural_Translator_Data.docx")
	gt.NoError(t, os.WriteFile(docxPath, buildDocx(t, documentXML), 0644))

	mdPath := filepath.Join(dir, "notes.md")
	gt.NoError(t, os.WriteFile(mdPath, []byte("# Notes\n\nIn India, head wobble means yes."), 0644))

	loader := docsource.New()

	doc, err := loader.Load(ctx, docxPath)
	gt.NoError(t, err)
	gt.Equal(t, doc.Name, "Cultural_Translator_Data.docx")
	gt.A(t, doc.Paragraphs).Length(4)

	doc, err = loader.Load(ctx, mdPath)
	gt.NoError(t, err)
	gt.Equal(t, doc.Paragraphs, []string{"# Notes", "In India, head wobble means yes."})
}

func TestLoadErrors(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	loader := docsource.New()

	t.Run("missing file", func(t *testing.T) {
		_, err := loader.Load(ctx, filepath.Join(dir, "missing.docx"))
		gt.Error(t, err)
		gt.True(t, errors.Is(err, model.ErrSourceUnavailable))
	})

	t.Run("unsupported format", func(t *testing.T) {
		p := filepath.Join(dir, "data.pdf")
		gt.NoError(t, os.WriteFile(p, []byte("%PDF"), 0644))
		_, err := loader.Load(ctx, p)
		gt.True(t, errors.Is(err, model.ErrSourceUnavailable))
	})

	t.Run("corrupt docx", func(t *testing.T) {
		p := filepath.Join(dir, "broken.docx")
		gt.NoError(t, os.WriteFile(p, []byte("not a zip"), 0644))
		_, err := loader.Load(ctx, p)
		gt.True(t, errors.Is(err, model.ErrSourceUnavailable))
	})

	t.Run("gcs without storage", func(t *testing.T) {
		_, err := loader.Load(ctx, "gs://bucket/data.docx")
		gt.True(t, errors.Is(err, model.ErrSourceUnavailable))
	})
}

type mockStorage struct {
	adapter.Storage
	objects map[string][]byte
}

func (m *mockStorage) Get(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	data, ok := m.objects[bucket+"/"+object]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func TestLoadGCS(t *testing.T) {
	ctx := context.Background()
	storage := &mockStorage{
		objects: map[string][]byte{
			"kb/data/culture.txt": []byte("In Brazil, the OK sign is rude.\n\nIn Germany, be on time."),
		},
	}
	loader := docsource.New(docsource.WithStorage(storage))

	doc, err := loader.Load(ctx, "gs://kb/data/culture.txt")
	gt.NoError(t, err)
	gt.Equal(t, doc.Name, "culture.txt")
	gt.A(t, doc.Paragraphs).Length(2)
	gt.True(t, strings.HasPrefix(doc.Text(), "In Brazil"))

	_, err = loader.Load(ctx, "gs://kb/missing.txt")
	gt.True(t, errors.Is(err, model.ErrSourceUnavailable))
}
