package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Gemini caps BatchEmbedContents at 100 requests.
const geminiMaxEmbedBatch = 100

type GeminiConfig struct {
	APIKey             string
	Model              string
	EmbeddingModel     string
	TranscriptionModel string
	EmbeddingBatchSize int
}

type GeminiClient struct {
	client *genai.Client
	cfg    GeminiConfig
}

func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is empty")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client failed: %w", err)
	}
	if cfg.EmbeddingBatchSize <= 0 || cfg.EmbeddingBatchSize > geminiMaxEmbedBatch {
		cfg.EmbeddingBatchSize = geminiMaxEmbedBatch
	}
	return &GeminiClient{client: client, cfg: cfg}, nil
}

func (c *GeminiClient) Name() string { return "gemini" }

func (c *GeminiClient) Close() error { return c.client.Close() }

func (c *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	res, err := c.client.EmbeddingModel(c.cfg.EmbeddingModel).EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, ErrEmptyResponse
	}
	return res.Embedding.Values, nil
}

func (c *GeminiClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := validateTexts(texts); err != nil {
		return nil, err
	}

	em := c.client.EmbeddingModel(c.cfg.EmbeddingModel)
	result := make([][]float32, 0, len(texts))
	for _, batch := range batches(texts, c.cfg.EmbeddingBatchSize) {
		b := em.NewBatch()
		for _, t := range batch {
			b.AddContent(genai.Text(t))
		}
		res, err := em.BatchEmbedContents(ctx, b)
		if err != nil {
			return nil, fmt.Errorf("embedding batch request failed: %w", err)
		}
		if len(res.Embeddings) != len(batch) {
			return nil, fmt.Errorf("%w: sent %d, got %d", ErrBatchSizeMismatch, len(batch), len(res.Embeddings))
		}
		for i, e := range res.Embeddings {
			if e == nil || len(e.Values) == 0 {
				return nil, fmt.Errorf("embedding %d: %w", i, ErrEmptyResponse)
			}
			result = append(result, e.Values)
		}
	}
	return result, nil
}

func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.GenerativeModel(c.cfg.Model).GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("llm request failed: %w", err)
	}
	text := responseText(resp)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (c *GeminiClient) Stream(ctx context.Context, prompt string) (TextStream, error) {
	ctx, cancel := context.WithCancel(ctx)
	iter := c.client.GenerativeModel(c.cfg.Model).GenerateContentStream(ctx, genai.Text(prompt))
	return &geminiStream{iter: iter, cancel: cancel}, nil
}

func (c *GeminiClient) Transcribe(ctx context.Context, _ string, mimeType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyInput
	}
	model := c.client.GenerativeModel(c.cfg.TranscriptionModel)
	resp, err := model.GenerateContent(ctx,
		genai.Blob{MIMEType: mimeType, Data: data},
		genai.Text(transcriptionPrompt),
	)
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}
	return responseText(resp), nil
}

type geminiStream struct {
	iter   *genai.GenerateContentResponseIterator
	cancel context.CancelFunc
}

func (s *geminiStream) Recv() (string, error) {
	for {
		resp, err := s.iter.Next()
		if errors.Is(err, iterator.Done) {
			return "", io.EOF
		}
		if err != nil {
			return "", fmt.Errorf("llm stream recv failed: %w", err)
		}
		if text := responseText(resp); text != "" {
			return text, nil
		}
	}
}

func (s *geminiStream) Close() error {
	s.cancel()
	return nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
	}
	return sb.String()
}
