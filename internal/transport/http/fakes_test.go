package http

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"secondbrain/internal/ai"
	"secondbrain/internal/model"
	"secondbrain/internal/vision"
)

// wordEmbedder maps texts containing "go" onto one axis and everything else
// onto the other.
type wordEmbedder struct{}

func (wordEmbedder) vec(text string) []float32 {
	for i := 0; i+1 < len(text); i++ {
		if text[i] == 'g' && text[i+1] == 'o' {
			return []float32{1, 0}
		}
	}
	return []float32{0, 1}
}

func (e wordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return e.vec(text), nil
}

func (e wordEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vec(t)
	}
	return out, nil
}

type scriptedGenerator struct {
	answer    string
	fragments []string
	failAfter int
}

func (g *scriptedGenerator) Generate(context.Context, string) (string, error) {
	return g.answer, nil
}

func (g *scriptedGenerator) Stream(context.Context, string) (ai.TextStream, error) {
	return &scriptedStream{fragments: append([]string(nil), g.fragments...), failAfter: g.failAfter}, nil
}

type scriptedStream struct {
	fragments []string
	failAfter int
	sent      int
}

func (s *scriptedStream) Recv() (string, error) {
	if s.failAfter > 0 && s.sent == s.failAfter {
		return "", errors.New("model overloaded")
	}
	if len(s.fragments) == 0 {
		return "", io.EOF
	}
	f := s.fragments[0]
	s.fragments = s.fragments[1:]
	s.sent++
	return f, nil
}

func (s *scriptedStream) Close() error { return nil }

type memDocs struct {
	mu   sync.Mutex
	docs map[string]*model.Document
	seq  int
}

func (m *memDocs) Create(_ context.Context, doc *model.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_ = doc.BeforeCreate(nil)
	m.seq++
	doc.CreatedAt = time.Date(2024, time.March, 1, 0, 0, m.seq, 0, time.UTC)
	cp := *doc
	m.docs[doc.ID] = &cp
	return nil
}

func (m *memDocs) FindByID(_ context.Context, id string) (*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	cp.Chunks = append([]model.Chunk(nil), d.Chunks...)
	return &cp, nil
}

func (m *memDocs) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.docs[id]
	delete(m.docs, id)
	return ok, nil
}

func (m *memDocs) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.docs)), nil
}

func (m *memDocs) all() []model.Document {
	out := make([]model.Document, 0, len(m.docs))
	for _, d := range m.docs {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memDocs) ListSummaries(context.Context) ([]model.DocumentSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []model.DocumentSummary
	for _, d := range m.all() {
		list = append(list, model.DocumentSummary{ID: d.ID, Title: d.Title, ContentType: d.ContentType, ChunkCount: len(d.Chunks), CreatedAt: d.CreatedAt})
	}
	return list, nil
}

func (m *memDocs) FindWithChunks(_ context.Context, filter model.DocumentFilter) ([]model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Document
	for _, d := range m.all() {
		if len(filter.ContentTypes) > 0 && d.ContentType != filter.ContentTypes[0] {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

type memConversations struct {
	mu    sync.Mutex
	convs map[string]model.Conversation
}

func (m *memConversations) Create(_ context.Context, conv *model.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_ = conv.BeforeCreate(nil)
	m.convs[conv.ID] = *conv
	return nil
}

func (m *memConversations) GetByID(_ context.Context, id string) (*model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.convs[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *memConversations) List(context.Context, int) ([]model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Conversation, 0, len(m.convs))
	for _, c := range m.convs {
		out = append(out, c)
	}
	return out, nil
}

func (m *memConversations) Touch(context.Context, string, time.Time) error { return nil }

type memMessages struct {
	mu    sync.Mutex
	saved []model.Message
}

func (m *memMessages) Create(_ context.Context, msg *model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = uint(len(m.saved) + 1)
	m.saved = append(m.saved, *msg)
	return nil
}

func (m *memMessages) ListByConversationID(_ context.Context, id string, _ int) ([]model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Message
	for _, msg := range m.saved {
		if msg.ConversationID == id {
			out = append(out, msg)
		}
	}
	return out, nil
}

type stubClassifier struct{}

func (stubClassifier) Classify([]byte) ([]vision.LabelScore, error) {
	return []vision.LabelScore{{Label: "tabby cat", Index: 281, Score: 0.9}}, nil
}
