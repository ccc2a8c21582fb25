package model

import (
	"strings"

	"cloud.google.com/go/firestore"
)

// Chunk is an embedded span of the knowledge document. It is never modified after build.
type Chunk struct {
	Index     int
	Text      string
	Offset    int // rune offset of the chunk start in the source text
	Embedding firestore.Vector32
}

// Document is the knowledge source as plain text
type Document struct {
	Name       string
	Paragraphs []string
}

// Text joins the paragraphs with blank lines
func (d *Document) Text() string {
	return strings.Join(d.Paragraphs, "\n\n")
}
