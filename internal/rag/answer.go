package rag

import (
	"context"
	"fmt"
	"io"
	"strings"

	"secondbrain/internal/ai"
)

const systemPrompt = `You are a helpful AI assistant that serves as a "second brain" for the user.
You have access to the user's personal knowledge base containing documents, transcripts, web articles, and notes.

Your role is to:
1. Answer questions based on the provided context from the user's knowledge base
2. Synthesize information from multiple sources when relevant
3. Be concise but comprehensive in your responses
4. Cite the sources when providing information
5. If the context doesn't contain relevant information, say so honestly

Always prioritize accuracy over speculation.`

const (
	NoContextNotice  = "No relevant documents found in the knowledge base."
	contextSeparator = "\n\n---\n\n"
	sourceDateLayout = "1/2/2006"
)

// FormatContext renders results as numbered source blocks.
func FormatContext(results []Result) string {
	if len(results) == 0 {
		return NoContextNotice
	}
	blocks := make([]string, len(results))
	for i, r := range results {
		blocks[i] = fmt.Sprintf("[Source %d: %s (%s) - %s]\n%s",
			i+1, r.Title, r.ContentType, r.CreatedAt.Format(sourceDateLayout), r.Content)
	}
	return strings.Join(blocks, contextSeparator)
}

func BuildPrompt(query string, results []Result) string {
	var sb strings.Builder
	sb.WriteString(systemPrompt)
	sb.WriteString("\n\nBased on the following context from my knowledge base, please answer my question.\n\nCONTEXT:\n")
	sb.WriteString(FormatContext(results))
	sb.WriteString("\n\nQUESTION: ")
	sb.WriteString(query)
	sb.WriteString("\n\nPlease provide a comprehensive answer based on the context above. If the context doesn't contain enough information, let me know.")
	return sb.String()
}

type AnswerGenerator struct {
	llm ai.Generator
}

func NewAnswerGenerator(llm ai.Generator) *AnswerGenerator {
	return &AnswerGenerator{llm: llm}
}

func (g *AnswerGenerator) Generate(ctx context.Context, query string, results []Result) (string, error) {
	answer, err := g.llm.Generate(ctx, BuildPrompt(query, results))
	if err != nil {
		return "", fmt.Errorf("generate answer failed: %w", err)
	}
	return answer, nil
}

// Stream starts generation and returns as soon as the upstream request is
// open. Fragments are handed out one by one via Next.
func (g *AnswerGenerator) Stream(ctx context.Context, query string, results []Result) (*AnswerStream, error) {
	ctx, cancel := context.WithCancel(ctx)
	upstream, err := g.llm.Stream(ctx, BuildPrompt(query, results))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("start answer stream failed: %w", err)
	}
	return &AnswerStream{upstream: upstream, cancel: cancel}, nil
}

// AnswerStream is a finite, non-restartable sequence of answer fragments.
// Close may be called at any time to stop upstream generation.
type AnswerStream struct {
	upstream ai.TextStream
	cancel   context.CancelFunc
	done     bool
}

// Next returns the next non-empty fragment, or io.EOF when the model is done.
func (s *AnswerStream) Next() (string, error) {
	if s.done {
		return "", io.EOF
	}
	for {
		frag, err := s.upstream.Recv()
		if err == io.EOF {
			s.done = true
			return "", io.EOF
		}
		if err != nil {
			s.done = true
			return "", err
		}
		if frag != "" {
			return frag, nil
		}
	}
}

func (s *AnswerStream) Close() error {
	s.done = true
	s.cancel()
	return s.upstream.Close()
}
