package rag

import (
	"context"
	"errors"
	"io"
	"slices"

	"secondbrain/internal/ai"
	"secondbrain/internal/model"
)

type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   []string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls = append(f.calls, text)
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{1, 0, 0}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// fakeFinder applies the filter in memory the same way the SQL repository does.
type fakeFinder struct {
	docs       []model.Document
	err        error
	lastFilter *model.DocumentFilter
}

func (f *fakeFinder) FindWithChunks(_ context.Context, filter model.DocumentFilter) ([]model.Document, error) {
	f.lastFilter = &filter
	if f.err != nil {
		return nil, f.err
	}
	var out []model.Document
	for _, d := range f.docs {
		if len(filter.ContentTypes) > 0 && !slices.Contains(filter.ContentTypes, d.ContentType) {
			continue
		}
		if filter.CreatedAfter != nil && d.CreatedAt.Before(*filter.CreatedAfter) {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

type fakeGenerator struct {
	answer     string
	fragments  []string
	err        error
	streamErr  error
	lastPrompt string
	stream     *fakeTextStream
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.lastPrompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func (f *fakeGenerator) Stream(ctx context.Context, prompt string) (ai.TextStream, error) {
	f.lastPrompt = prompt
	if f.err != nil {
		return nil, f.err
	}
	f.stream = &fakeTextStream{ctx: ctx, fragments: f.fragments, failWith: f.streamErr}
	return f.stream, nil
}

type fakeTextStream struct {
	ctx       context.Context
	fragments []string
	pos       int
	failWith  error
	closed    bool
}

func (s *fakeTextStream) Recv() (string, error) {
	if err := s.ctx.Err(); err != nil {
		return "", err
	}
	if s.pos >= len(s.fragments) {
		if s.failWith != nil {
			return "", s.failWith
		}
		return "", io.EOF
	}
	frag := s.fragments[s.pos]
	s.pos++
	return frag, nil
}

func (s *fakeTextStream) Close() error {
	s.closed = true
	return nil
}

var errUpstream = errors.New("upstream exploded")
