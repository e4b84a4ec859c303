package app

import (
	"context"
	"fmt"
	"strings"

	"secondbrain/internal/model"
)

type DocumentService struct {
	docs DocumentStore
}

func NewDocumentService(docs DocumentStore) *DocumentService {
	return &DocumentService{docs: docs}
}

type DocumentList struct {
	Documents []model.DocumentSummary `json:"documents"`
	Total     int                     `json:"total"`
}

func (s *DocumentService) List(ctx context.Context) (*DocumentList, error) {
	docs, err := s.docs.ListSummaries(ctx)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []model.DocumentSummary{}
	}
	return &DocumentList{Documents: docs, Total: len(docs)}, nil
}

func (s *DocumentService) Count(ctx context.Context) (int64, error) {
	return s.docs.Count(ctx)
}

// Get returns the document with its chunks. Embeddings are stripped.
func (s *DocumentService) Get(ctx context.Context, id string) (*model.Document, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: document id is required", ErrInvalidInput)
	}
	doc, err := s.docs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	for i := range doc.Chunks {
		doc.Chunks[i].Embedding = nil
	}
	return doc, nil
}

func (s *DocumentService) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: document id is required", ErrInvalidInput)
	}
	deleted, err := s.docs.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return nil
}
