package app

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"secondbrain/internal/ai"
	"secondbrain/internal/extract"
	"secondbrain/internal/model"
	"secondbrain/internal/pkg/webscrape"
)

var errUpstream = errors.New("upstream unavailable")

type fakeEmbedder struct {
	vectors  map[string][]float32
	fallback []float32
	err      error
	short    bool
	batches  [][]string
}

func (f *fakeEmbedder) vector(text string) []float32 {
	if v, ok := f.vectors[text]; ok {
		return v
	}
	if f.fallback != nil {
		return f.fallback
	}
	return []float32{1, 0}
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vector(text), nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.batches = append(f.batches, texts)
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		out = append(out, f.vector(t))
	}
	if f.short {
		out = out[:len(out)-1]
	}
	return out, nil
}

// memDocs is an in-memory DocumentStore and rag.DocumentFinder.
type memDocs struct {
	mu        sync.Mutex
	docs      map[string]*model.Document
	createErr error
	seq       int
}

func newMemDocs() *memDocs {
	return &memDocs{docs: map[string]*model.Document{}}
}

func (m *memDocs) Create(_ context.Context, doc *model.Document) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := doc.BeforeCreate(nil); err != nil {
		return err
	}
	m.seq++
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Date(2024, time.March, 1, 0, 0, m.seq, 0, time.UTC)
	}
	cp := *doc
	m.docs[doc.ID] = &cp
	return nil
}

func (m *memDocs) FindByID(_ context.Context, id string) (*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, nil
	}
	cp := *doc
	cp.Chunks = append([]model.Chunk(nil), doc.Chunks...)
	return &cp, nil
}

func (m *memDocs) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return false, nil
	}
	delete(m.docs, id)
	return true, nil
}

func (m *memDocs) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.docs)), nil
}

func (m *memDocs) sorted() []*model.Document {
	out := make([]*model.Document, 0, len(m.docs))
	for _, d := range m.docs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memDocs) ListSummaries(context.Context) ([]model.DocumentSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []model.DocumentSummary
	for _, d := range m.sorted() {
		list = append(list, model.DocumentSummary{
			ID: d.ID, Title: d.Title, ContentType: d.ContentType, Source: d.Source,
			Tags: d.Tags, CreatedAt: d.CreatedAt, ChunkCount: len(d.Chunks),
		})
	}
	return list, nil
}

func (m *memDocs) FindWithChunks(_ context.Context, filter model.DocumentFilter) ([]model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Document
	for _, d := range m.sorted() {
		if filter.CreatedAfter != nil && d.CreatedAt.Before(*filter.CreatedAfter) {
			continue
		}
		if len(filter.ContentTypes) > 0 {
			keep := false
			for _, ct := range filter.ContentTypes {
				keep = keep || ct == d.ContentType
			}
			if !keep {
				continue
			}
		}
		out = append(out, *d)
	}
	return out, nil
}

type fakeProcessor struct {
	out extract.Output
	err error
	got extract.FileInput
}

func (f *fakeProcessor) Process(_ context.Context, in extract.FileInput) (extract.Output, error) {
	f.got = in
	return f.out, f.err
}

type fakeFetcher struct {
	page webscrape.Page
	err  error
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (webscrape.Page, error) {
	if f.err != nil {
		return webscrape.Page{}, f.err
	}
	p := f.page
	p.URL = url
	return p, nil
}

type fakeGenerator struct {
	answer    string
	fragments []string
	err       error
	prompts   []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.answer, f.err
}

func (f *fakeGenerator) Stream(_ context.Context, prompt string) (ai.TextStream, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return nil, f.err
	}
	return &fakeTextStream{fragments: f.fragments}, nil
}

type fakeTextStream struct {
	fragments []string
	closed    bool
}

func (s *fakeTextStream) Recv() (string, error) {
	if len(s.fragments) == 0 {
		return "", io.EOF
	}
	f := s.fragments[0]
	s.fragments = s.fragments[1:]
	return f, nil
}

func (s *fakeTextStream) Close() error {
	s.closed = true
	return nil
}

type memConversations struct {
	mu      sync.Mutex
	convs   map[string]*model.Conversation
	touched map[string]time.Time
}

func newMemConversations() *memConversations {
	return &memConversations{convs: map[string]*model.Conversation{}, touched: map[string]time.Time{}}
}

func (m *memConversations) Create(_ context.Context, conv *model.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := conv.BeforeCreate(nil); err != nil {
		return err
	}
	cp := *conv
	m.convs[conv.ID] = &cp
	return nil
}

func (m *memConversations) GetByID(_ context.Context, id string) (*model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.convs[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *memConversations) List(context.Context, int) ([]model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Conversation
	for _, c := range m.convs {
		out = append(out, *c)
	}
	return out, nil
}

func (m *memConversations) Touch(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touched[id] = at
	return nil
}

type memMessages struct {
	mu    sync.Mutex
	saved []model.Message
	lists int
}

func (m *memMessages) Create(_ context.Context, msg *model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = uint(len(m.saved) + 1)
	m.saved = append(m.saved, *msg)
	return nil
}

func (m *memMessages) ListByConversationID(_ context.Context, id string, limit int) ([]model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists++
	var out []model.Message
	for _, msg := range m.saved {
		if msg.ConversationID == id {
			out = append(out, msg)
		}
	}
	return headMessages(out, limit), nil
}

type fakePublisher struct {
	published []model.Message
	err       error
}

func (p *fakePublisher) Publish(_ context.Context, msg model.Message) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, msg)
	return nil
}
