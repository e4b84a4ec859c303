package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ContentType classifies the medium a document came from.
type ContentType string

const (
	ContentTypeAudio    ContentType = "audio"
	ContentTypeDocument ContentType = "document"
	ContentTypeWeb      ContentType = "web"
	ContentTypeText     ContentType = "text"
	ContentTypeImage    ContentType = "image"
)

var ContentTypes = []ContentType{
	ContentTypeAudio,
	ContentTypeDocument,
	ContentTypeWeb,
	ContentTypeText,
	ContentTypeImage,
}

func (t ContentType) Valid() bool {
	for _, known := range ContentTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseContentType normalizes s and rejects anything outside the closed set.
func ParseContentType(s string) (ContentType, error) {
	t := ContentType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown content type %q", s)
	}
	return t, nil
}

type DocumentMetadata struct {
	FileSize  int64   `json:"file_size,omitempty"`
	MimeType  string  `json:"mime_type,omitempty"`
	Duration  float64 `json:"duration,omitempty"`
	PageCount int     `json:"page_count,omitempty"`
}

type Document struct {
	ID              string                               `gorm:"primaryKey;size:36" json:"id"`
	Title           string                               `gorm:"size:512;not null" json:"title"`
	ContentType     ContentType                          `gorm:"size:16;not null;index" json:"content_type"`
	Source          string                               `gorm:"size:2048;not null" json:"source"`
	OriginalContent string                               `gorm:"type:longtext" json:"original_content,omitempty"`
	Chunks          []Chunk                              `gorm:"constraint:OnDelete:CASCADE" json:"chunks,omitempty"`
	Tags            datatypes.JSONSlice[string]          `json:"tags"`
	Metadata        datatypes.JSONType[DocumentMetadata] `json:"metadata"`
	CreatedAt       time.Time                            `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time                            `json:"updated_at"`
}

func (d *Document) BeforeCreate(_ *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

// Chunk is a contiguous piece of a document's text with its embedding.
// Embeddings round-trip through JSON as float32, so stored vectors are exact.
type Chunk struct {
	ID         uint                         `gorm:"primaryKey" json:"-"`
	DocumentID string                       `gorm:"size:36;not null;uniqueIndex:idx_chunk_document_index" json:"-"`
	ChunkIndex int                          `gorm:"not null;uniqueIndex:idx_chunk_document_index" json:"chunk_index"`
	Content    string                       `gorm:"type:longtext;not null" json:"content"`
	Embedding  datatypes.JSONSlice[float32] `json:"embedding,omitempty"`
}

// DocumentSummary is the listing projection of a document, without chunks.
type DocumentSummary struct {
	ID          string                      `json:"id"`
	Title       string                      `json:"title"`
	ContentType ContentType                 `json:"content_type"`
	Source      string                      `json:"source"`
	Tags        datatypes.JSONSlice[string] `json:"tags"`
	CreatedAt   time.Time                   `json:"created_at"`
	ChunkCount  int                         `json:"chunk_count"`
}

// DocumentFilter narrows the documents considered by a search.
// A zero filter matches everything.
type DocumentFilter struct {
	ContentTypes []ContentType
	CreatedAfter *time.Time
}
