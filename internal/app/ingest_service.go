package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"

	"secondbrain/internal/ai"
	"secondbrain/internal/extract"
	"secondbrain/internal/model"
	"secondbrain/internal/pkg/webscrape"
	"secondbrain/internal/rag"
)

const (
	DefaultTextTitle = "Text Note"
	directInput      = "direct_input"
)

type DocumentStore interface {
	Create(ctx context.Context, doc *model.Document) error
	FindByID(ctx context.Context, id string) (*model.Document, error)
	Delete(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context) (int64, error)
	ListSummaries(ctx context.Context) ([]model.DocumentSummary, error)
}

type FileProcessor interface {
	Process(ctx context.Context, in extract.FileInput) (extract.Output, error)
}

type WebFetcher interface {
	Fetch(ctx context.Context, url string) (webscrape.Page, error)
}

type IngestService struct {
	docs     DocumentStore
	chunker  *rag.Chunker
	embedder ai.Embedder
	files    FileProcessor
	web      WebFetcher
}

func NewIngestService(docs DocumentStore, chunker *rag.Chunker, embedder ai.Embedder, files FileProcessor, web WebFetcher) *IngestService {
	return &IngestService{
		docs:     docs,
		chunker:  chunker,
		embedder: embedder,
		files:    files,
		web:      web,
	}
}

type TextInput struct {
	Text  string
	Title string
	Tags  []string
}

type URLInput struct {
	URL   string
	Title string
	Tags  []string
}

type FileInput struct {
	Filename    string
	Data        []byte
	Title       string
	ContentType string
	Tags        []string
}

type IngestResult struct {
	Success       bool   `json:"success"`
	DocumentID    string `json:"document_id"`
	Message       string `json:"message"`
	ChunksCreated int    `json:"chunks_created"`
}

func (s *IngestService) IngestText(ctx context.Context, in TextInput) (*IngestResult, error) {
	if strings.TrimSpace(in.Text) == "" {
		return nil, fmt.Errorf("%w: text content is required", ErrInvalidInput)
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = DefaultTextTitle
	}

	doc := &model.Document{
		Title:       title,
		ContentType: model.ContentTypeText,
		Source:      directInput,
		Tags:        CleanTags(in.Tags),
	}
	n, err := s.store(ctx, doc, in.Text)
	if err != nil {
		return nil, err
	}
	return &IngestResult{
		Success:       true,
		DocumentID:    doc.ID,
		Message:       "Successfully ingested text content",
		ChunksCreated: n,
	}, nil
}

func (s *IngestService) IngestURL(ctx context.Context, in URLInput) (*IngestResult, error) {
	rawURL := strings.TrimSpace(in.URL)
	if rawURL == "" {
		return nil, fmt.Errorf("%w: url is required", ErrInvalidInput)
	}

	page, err := s.web.Fetch(ctx, rawURL)
	if err != nil {
		if errors.Is(err, webscrape.ErrInvalidURL) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = page.Title
	}
	if title == "" {
		title = rawURL
	}

	doc := &model.Document{
		Title:       title,
		ContentType: model.ContentTypeWeb,
		Source:      rawURL,
		Tags:        CleanTags(in.Tags),
	}
	n, err := s.store(ctx, doc, page.Text)
	if err != nil {
		return nil, err
	}
	return &IngestResult{
		Success:       true,
		DocumentID:    doc.ID,
		Message:       "Successfully ingested URL: " + rawURL,
		ChunksCreated: n,
	}, nil
}

func (s *IngestService) IngestFile(ctx context.Context, in FileInput) (*IngestResult, error) {
	if len(in.Data) == 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrInvalidInput)
	}

	var declared model.ContentType
	if strings.TrimSpace(in.ContentType) != "" {
		ct, err := model.ParseContentType(in.ContentType)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		declared = ct
	}

	out, err := s.files.Process(ctx, extract.FileInput{
		Filename:     in.Filename,
		Data:         in.Data,
		DeclaredType: declared,
	})
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = in.Filename
	}

	doc := &model.Document{
		Title:       title,
		ContentType: out.ContentType,
		Source:      in.Filename,
		Tags:        CleanTags(in.Tags),
		Metadata:    datatypes.NewJSONType(out.Metadata),
	}
	n, err := s.store(ctx, doc, out.Text)
	if err != nil {
		return nil, err
	}
	return &IngestResult{
		Success:       true,
		DocumentID:    doc.ID,
		Message:       "Successfully ingested " + in.Filename,
		ChunksCreated: n,
	}, nil
}

// store chunks and embeds text, then persists doc. Nothing is written unless
// every chunk received an embedding.
func (s *IngestService) store(ctx context.Context, doc *model.Document, text string) (int, error) {
	if strings.TrimSpace(text) == "" {
		return 0, ErrNoContent
	}
	pieces := s.chunker.Chunk(text)
	if len(pieces) == 0 {
		return 0, ErrNoContent
	}

	vectors, err := s.embedder.EmbedBatch(ctx, pieces)
	if err != nil {
		return 0, fmt.Errorf("embed chunks failed: %w", err)
	}
	if len(vectors) != len(pieces) {
		return 0, fmt.Errorf("embed chunks failed: %w", ai.ErrBatchSizeMismatch)
	}

	doc.OriginalContent = text
	doc.Chunks = make([]model.Chunk, len(pieces))
	for i, content := range pieces {
		doc.Chunks[i] = model.Chunk{
			ChunkIndex: i,
			Content:    content,
			Embedding:  vectors[i],
		}
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return 0, err
	}

	log.Ctx(ctx).Info().
		Str("document_id", doc.ID).
		Str("content_type", string(doc.ContentType)).
		Int("chunks", len(pieces)).
		Msg("document ingested")
	return len(pieces), nil
}

// CleanTags trims tags and drops empty ones.
func CleanTags(tags []string) datatypes.JSONSlice[string] {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// SplitTags parses a comma separated tag list.
func SplitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return strings.Split(raw, ",")
}
