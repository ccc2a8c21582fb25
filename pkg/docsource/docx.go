package docsource

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

const docxBody = "word/document.xml"

// ParseDocx extracts the non-empty paragraphs of a Word document in reading order
func ParseDocx(data []byte) ([]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, goerr.Wrap(err, "not a docx archive")
	}

	var body *zip.File
	for _, f := range zr.File {
		if f.Name == docxBody {
			body = f
			break
		}
	}
	if body == nil {
		return nil, goerr.New("docx has no document body", goerr.V("entry", docxBody))
	}

	rc, err := body.Open()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open document body")
	}
	defer func() {
		_ = rc.Close()
	}()

	return parseDocumentXML(rc)
}

// parseDocumentXML walks WordprocessingML: w:p is a paragraph, w:t holds text,
// w:tab and w:br become whitespace. Tab stops declared in paragraph
// properties are not text.
func parseDocumentXML(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)

	var (
		paragraphs []string
		current    strings.Builder
		inText     bool
		inProps    int
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "malformed document body")
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "pPr":
				inProps++
			case "tab":
				if inProps == 0 {
					current.WriteString("\t")
				}
			case "br", "cr":
				current.WriteString("\n")
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "pPr":
				inProps--
			case "p":
				if p := strings.TrimSpace(current.String()); p != "" {
					paragraphs = append(paragraphs, p)
				}
				current.Reset()
			}

		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}

	return paragraphs, nil
}
