// Package ai wraps the external model providers used for embeddings, answer
// generation and audio transcription.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyInput        = errors.New("empty model input")
	ErrEmptyResponse     = errors.New("empty model response")
	ErrBatchSizeMismatch = errors.New("embedding batch size mismatch")
)

// Embedder maps text to fixed-length vectors. EmbedBatch results are aligned
// index-for-index with texts.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// TextStream yields generated fragments in model order. Recv returns io.EOF
// once the model is done. Close abandons the upstream request.
type TextStream interface {
	Recv() (string, error)
	Close() error
}

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Stream(ctx context.Context, prompt string) (TextStream, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, filename, mimeType string, data []byte) (string, error)
}

// Provider bundles every capability a single backend offers.
type Provider interface {
	Embedder
	Generator
	Transcriber
	Name() string
}

const transcriptionPrompt = "Please transcribe this audio file. Provide only the transcription, no additional commentary."

func validateTexts(texts []string) error {
	if len(texts) == 0 {
		return ErrEmptyInput
	}
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return fmt.Errorf("text %d: %w", i, ErrEmptyInput)
		}
	}
	return nil
}

func batches(texts []string, size int) [][]string {
	if size <= 0 {
		size = len(texts)
	}
	out := make([][]string, 0, (len(texts)+size-1)/size)
	for start := 0; start < len(texts); start += size {
		end := start + size
		if end > len(texts) {
			end = len(texts)
		}
		out = append(out, texts[start:end])
	}
	return out
}
