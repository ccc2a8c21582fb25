package model

import "time"

// IndexMeta describes how a persisted chunk index was built
type IndexMeta struct {
	EmbeddingModel string
	ChunkSize      int
	ChunkOverlap   int
	SourceName     string
	SourceDigest   string
	ChunkCount     int
	BuiltAt        time.Time
}

// SameBuild reports whether other was built from the same source with the same settings
func (m *IndexMeta) SameBuild(other *IndexMeta) bool {
	if m == nil || other == nil {
		return false
	}
	return m.EmbeddingModel == other.EmbeddingModel &&
		m.ChunkSize == other.ChunkSize &&
		m.ChunkOverlap == other.ChunkOverlap &&
		m.SourceDigest == other.SourceDigest
}
