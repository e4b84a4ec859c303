package ai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/sashabaranov/go-openai"
)

type OpenAIConfig struct {
	BaseURL            string
	APIKey             string
	Model              string
	EmbeddingModel     string
	EmbeddingBatchSize int
	TranscriptionModel string
	Timeout            time.Duration
}

// OpenAICompatibleClient talks to any server that speaks the OpenAI REST
// dialect (OpenAI itself, vLLM, Ollama, DashScope compatible mode).
// Streaming requests use a client without an overall deadline; Timeout
// bounds only the wait for response headers there, and ctx ends the body.
type OpenAICompatibleClient struct {
	client   *openai.Client
	streamer *openai.Client
	cfg      OpenAIConfig
}

func NewOpenAICompatibleClient(cfg OpenAIConfig) *OpenAICompatibleClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	streamCfg := clientCfg
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = cfg.Timeout
	streamCfg.HTTPClient = &http.Client{Transport: transport}

	return &OpenAICompatibleClient{
		client:   openai.NewClientWithConfig(clientCfg),
		streamer: openai.NewClientWithConfig(streamCfg),
		cfg:      cfg,
	}
}

func (c *OpenAICompatibleClient) Name() string { return "openai" }

func (c *OpenAICompatibleClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (c *OpenAICompatibleClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := validateTexts(texts); err != nil {
		return nil, err
	}

	result := make([][]float32, 0, len(texts))
	for _, batch := range batches(texts, c.cfg.EmbeddingBatchSize) {
		resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: batch,
			Model: openai.EmbeddingModel(c.cfg.EmbeddingModel),
		})
		if err != nil {
			return nil, fmt.Errorf("embedding request failed: %w", err)
		}
		if len(resp.Data) != len(batch) {
			return nil, fmt.Errorf("%w: sent %d, got %d", ErrBatchSizeMismatch, len(batch), len(resp.Data))
		}
		data := resp.Data
		sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })
		for _, item := range data {
			if len(item.Embedding) == 0 {
				return nil, fmt.Errorf("embedding %d: %w", item.Index, ErrEmptyResponse)
			}
			result = append(result, item.Embedding)
		}
	}
	return result, nil
}

func (c *OpenAICompatibleClient) chatRequest(prompt string) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
}

func (c *OpenAICompatibleClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, c.chatRequest(prompt))
	if err != nil {
		return "", fmt.Errorf("llm request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm choices: %w", ErrEmptyResponse)
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAICompatibleClient) Stream(ctx context.Context, prompt string) (TextStream, error) {
	ctx, cancel := context.WithCancel(ctx)
	req := c.chatRequest(prompt)
	req.Stream = true
	stream, err := c.streamer.CreateChatCompletionStream(ctx, req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("llm stream request failed: %w", err)
	}
	return &openAIStream{stream: stream, cancel: cancel}, nil
}

func (c *OpenAICompatibleClient) Transcribe(ctx context.Context, filename, _ string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyInput
	}
	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.cfg.TranscriptionModel,
		FilePath: filename,
		Reader:   bytes.NewReader(data),
		Prompt:   transcriptionPrompt,
	})
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}
	return resp.Text, nil
}

type openAIStream struct {
	stream *openai.ChatCompletionStream
	cancel context.CancelFunc
}

// Recv skips deltas without content so callers only see real fragments.
func (s *openAIStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		if err != nil {
			return "", fmt.Errorf("llm stream recv failed: %w", err)
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
			continue
		}
		return resp.Choices[0].Delta.Content, nil
	}
}

func (s *openAIStream) Close() error {
	s.cancel()
	s.stream.Close()
	return nil
}
