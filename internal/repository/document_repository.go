package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"secondbrain/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func orderedChunks(db *gorm.DB) *gorm.DB {
	return db.Order("chunk_index ASC")
}

// Create inserts the document and all of its chunks in one transaction.
func (r *DocumentRepository) Create(ctx context.Context, doc *model.Document) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(doc).Error
	})
	if err != nil {
		return fmt.Errorf("create document failed: %w", err)
	}
	return nil
}

// FindWithChunks returns every document matching filter, newest first, with
// chunks in index order. The original text is not loaded.
func (r *DocumentRepository) FindWithChunks(ctx context.Context, filter model.DocumentFilter) ([]model.Document, error) {
	var docs []model.Document
	err := r.findQuery(r.db.WithContext(ctx), filter).
		Preload("Chunks", orderedChunks).
		Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("find documents failed: %w", err)
	}
	return docs, nil
}

func (r *DocumentRepository) findQuery(q *gorm.DB, filter model.DocumentFilter) *gorm.DB {
	q = q.Model(&model.Document{}).Omit("original_content")
	if len(filter.ContentTypes) > 0 {
		types := make([]string, len(filter.ContentTypes))
		for i, ct := range filter.ContentTypes {
			types[i] = string(ct)
		}
		q = q.Where("content_type IN ?", types)
	}
	if filter.CreatedAfter != nil {
		q = q.Where("created_at >= ?", *filter.CreatedAfter)
	}
	return q.Order("created_at DESC")
}

// FindByID returns nil without error when no document has the id.
func (r *DocumentRepository) FindByID(ctx context.Context, id string) (*model.Document, error) {
	var doc model.Document
	err := r.db.WithContext(ctx).
		Preload("Chunks", orderedChunks).
		Where("id = ?", id).
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document failed: %w", err)
	}
	return &doc, nil
}

// Delete removes the document and its chunks. It reports whether a document
// was actually removed.
func (r *DocumentRepository) Delete(ctx context.Context, id string) (bool, error) {
	var deleted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", id).Delete(&model.Chunk{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&model.Document{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete document failed: %w", err)
	}
	return deleted, nil
}

func (r *DocumentRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Document{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count documents failed: %w", err)
	}
	return n, nil
}

// ListSummaries returns every document newest first with its chunk count.
func (r *DocumentRepository) ListSummaries(ctx context.Context) ([]model.DocumentSummary, error) {
	var list []model.DocumentSummary
	err := r.db.WithContext(ctx).
		Model(&model.Document{}).
		Select("documents.id, documents.title, documents.content_type, documents.source, documents.tags, documents.created_at, COUNT(chunks.id) AS chunk_count").
		Joins("LEFT JOIN chunks ON chunks.document_id = documents.id").
		Group("documents.id").
		Order("documents.created_at DESC").
		Scan(&list).Error
	if err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	return list, nil
}
