package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSourceTypeValid(t *testing.T) {
	assert.True(t, SourceTypeWebsite.Valid())
	assert.True(t, SourceTypePDF.Valid())
	assert.False(t, SourceType("docx").Valid())
	assert.False(t, SourceType("").Valid())
}

func TestSourceIDDerivation(t *testing.T) {
	id := SourceIDFromURL("https://example.com")
	assert.Len(t, id, 6)
	assert.Equal(t, id, SourceIDFromURL("https://example.com"))
	assert.NotEqual(t, id, SourceIDFromURL("https://example.org"))

	assert.Len(t, SourceIDFromContent([]byte("%PDF-1.4")), 16)
}

func TestNewPoint_ChunkLengthCountsRunes(t *testing.T) {
	p := NewPoint("id-1", "u1", "s1", 2, "héllo 世界", []float32{0.1})
	assert.Equal(t, int64(8), p.ChunkLength)
	assert.Equal(t, int64(2), p.ChunkIndex)
	assert.Equal(t, "u1", p.UserId)
}
