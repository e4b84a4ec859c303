package rag

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"secondbrain/internal/ai"
	"secondbrain/internal/model"
)

var (
	ErrEmptyQuery         = errors.New("query is empty")
	ErrUnknownContentType = errors.New("unknown content type")
)

const (
	DefaultLimit = 5
	DefaultMax   = 50
)

// DocumentFinder loads every document matching filter together with its
// chunks and their embeddings.
type DocumentFinder interface {
	FindWithChunks(ctx context.Context, filter model.DocumentFilter) ([]model.Document, error)
}

// Result is one scored chunk. It lives only for the duration of a search.
type Result struct {
	DocumentID  string            `json:"document_id"`
	Title       string            `json:"title"`
	ContentType model.ContentType `json:"content_type"`
	Source      string            `json:"source"`
	Content     string            `json:"content"`
	ChunkIndex  int               `json:"chunk_index"`
	Relevance   float64           `json:"relevance"`
	CreatedAt   time.Time         `json:"created_at"`
}

type SearchOptions struct {
	Limit        int
	TimeFilter   string
	ContentTypes []model.ContentType
}

type Retriever struct {
	embedder     ai.Embedder
	docs         DocumentFinder
	defaultLimit int
	maxLimit     int
	now          func() time.Time
}

type RetrieverOption func(*Retriever)

func WithLimits(defaultLimit, maxLimit int) RetrieverOption {
	return func(r *Retriever) {
		if defaultLimit > 0 {
			r.defaultLimit = defaultLimit
		}
		if maxLimit > 0 {
			r.maxLimit = maxLimit
		}
	}
}

// WithClock replaces time.Now when resolving time filters.
func WithClock(now func() time.Time) RetrieverOption {
	return func(r *Retriever) {
		if now != nil {
			r.now = now
		}
	}
}

func NewRetriever(embedder ai.Embedder, docs DocumentFinder, opts ...RetrieverOption) *Retriever {
	r := &Retriever{
		embedder:     embedder,
		docs:         docs,
		defaultLimit: DefaultLimit,
		maxLimit:     DefaultMax,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Search scores every chunk of every document passing the content-type and
// time filters against the query embedding and returns the best opts.Limit.
// There is no index: each call is a full scan of the filtered set.
func (r *Retriever) Search(ctx context.Context, query string, opts SearchOptions) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	for _, ct := range opts.ContentTypes {
		if !ct.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownContentType, ct)
		}
	}
	limit := r.resolveLimit(opts.Limit)

	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query failed: %w", err)
	}

	filter := r.buildFilter(opts)
	docs, err := r.docs.FindWithChunks(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("load documents failed: %w", err)
	}

	results := make([]Result, 0, len(docs)*4)
	for _, doc := range docs {
		for _, chunk := range doc.Chunks {
			results = append(results, Result{
				DocumentID:  doc.ID,
				Title:       doc.Title,
				ContentType: doc.ContentType,
				Source:      doc.Source,
				Content:     chunk.Content,
				ChunkIndex:  chunk.ChunkIndex,
				Relevance:   CosineSimilarity(queryVec, chunk.Embedding),
				CreatedAt:   doc.CreatedAt,
			})
		}
	}
	SortResults(results)

	zerolog.Ctx(ctx).Debug().
		Int("documents", len(docs)).
		Int("chunks_scored", len(results)).
		Int("limit", limit).
		Msg("retrieval scan finished")

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// SortResults orders by relevance descending. Ties go to the newer document,
// then the lower document ID, then the lower chunk index.
func SortResults(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Relevance != b.Relevance {
			return a.Relevance > b.Relevance
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		if a.DocumentID != b.DocumentID {
			return a.DocumentID < b.DocumentID
		}
		return a.ChunkIndex < b.ChunkIndex
	})
}

func (r *Retriever) resolveLimit(limit int) int {
	if limit <= 0 {
		limit = r.defaultLimit
	}
	if limit > r.maxLimit {
		limit = r.maxLimit
	}
	return limit
}

func (r *Retriever) buildFilter(opts SearchOptions) model.DocumentFilter {
	var filter model.DocumentFilter
	if len(opts.ContentTypes) > 0 {
		filter.ContentTypes = opts.ContentTypes
	}
	if cutoff, ok := ParseTimeFilter(opts.TimeFilter, r.now()); ok {
		filter.CreatedAfter = &cutoff
	}
	return filter
}
