package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"secondbrain/internal/model"
	"secondbrain/internal/rag"
)

const excerptRunes = 200

type QueryInput struct {
	Query          string
	TimeFilter     string
	ContentTypes   []string
	Limit          int
	ConversationID string
}

type Source struct {
	DocumentID  string            `json:"document_id"`
	Title       string            `json:"title"`
	ContentType model.ContentType `json:"content_type"`
	Source      string            `json:"source"`
	Timestamp   time.Time         `json:"timestamp"`
	Relevance   float64           `json:"relevance"`
	Excerpt     string            `json:"excerpt"`
}

type QueryResult struct {
	Answer    string   `json:"answer"`
	Sources   []Source `json:"sources"`
	QueryTime float64  `json:"query_time"`
}

// ConversationLog is the part of ConversationService a query needs.
type ConversationLog interface {
	Ensure(ctx context.Context, id string) error
	Append(ctx context.Context, id string, messages ...model.Message) error
}

type QueryService struct {
	retriever     *rag.Retriever
	answers       *rag.AnswerGenerator
	conversations ConversationLog
	now           func() time.Time
}

func NewQueryService(retriever *rag.Retriever, answers *rag.AnswerGenerator, conversations ConversationLog) *QueryService {
	return &QueryService{
		retriever:     retriever,
		answers:       answers,
		conversations: conversations,
		now:           time.Now,
	}
}

func (s *QueryService) Ask(ctx context.Context, in QueryInput) (*QueryResult, error) {
	start := s.now()
	results, asked, err := s.search(ctx, in)
	if err != nil {
		return nil, err
	}

	answer, err := s.answers.Generate(ctx, in.Query, results)
	if err != nil {
		return nil, err
	}

	sources := toSources(results)
	s.record(ctx, in.ConversationID, asked, answer, sources)
	return &QueryResult{
		Answer:    answer,
		Sources:   sources,
		QueryTime: s.now().Sub(start).Seconds(),
	}, nil
}

// Stream searches synchronously, then opens the answer stream. Sources are
// available immediately; fragments follow through Next.
func (s *QueryService) Stream(ctx context.Context, in QueryInput) (*QueryStream, error) {
	results, asked, err := s.search(ctx, in)
	if err != nil {
		return nil, err
	}
	answer, err := s.answers.Stream(ctx, in.Query, results)
	if err != nil {
		return nil, err
	}
	return &QueryStream{
		Sources:        toSources(results),
		answer:         answer,
		service:        s,
		ctx:            ctx,
		conversationID: in.ConversationID,
		asked:          asked,
	}, nil
}

func (s *QueryService) search(ctx context.Context, in QueryInput) ([]rag.Result, model.Message, error) {
	in.Query = strings.TrimSpace(in.Query)
	if in.Query == "" {
		return nil, model.Message{}, fmt.Errorf("%w: query is required", ErrInvalidInput)
	}
	if in.Limit < 0 {
		return nil, model.Message{}, fmt.Errorf("%w: limit must not be negative", ErrInvalidInput)
	}

	types := make([]model.ContentType, 0, len(in.ContentTypes))
	for _, raw := range in.ContentTypes {
		ct, err := model.ParseContentType(raw)
		if err != nil {
			return nil, model.Message{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		types = append(types, ct)
	}

	if in.ConversationID != "" && s.conversations != nil {
		if err := s.conversations.Ensure(ctx, in.ConversationID); err != nil {
			return nil, model.Message{}, err
		}
	}
	asked := model.Message{Role: model.RoleUser, Content: in.Query, CreatedAt: s.now()}

	results, err := s.retriever.Search(ctx, in.Query, rag.SearchOptions{
		Limit:        in.Limit,
		TimeFilter:   in.TimeFilter,
		ContentTypes: types,
	})
	if err != nil {
		if errors.Is(err, rag.ErrEmptyQuery) || errors.Is(err, rag.ErrUnknownContentType) {
			return nil, model.Message{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return nil, model.Message{}, err
	}
	return results, asked, nil
}

// record appends the exchange to the conversation. The answer has already
// been delivered, so failures are logged rather than returned.
func (s *QueryService) record(ctx context.Context, conversationID string, asked model.Message, answer string, sources []Source) {
	if conversationID == "" || s.conversations == nil {
		return
	}
	cited := make([]model.MessageSource, len(sources))
	for i, src := range sources {
		cited[i] = model.MessageSource{
			DocumentID: src.DocumentID,
			Title:      src.Title,
			Excerpt:    src.Excerpt,
			Relevance:  src.Relevance,
		}
	}
	reply := model.Message{
		Role:      model.RoleAssistant,
		Content:   answer,
		Sources:   cited,
		CreatedAt: s.now(),
	}
	if err := s.conversations.Append(ctx, conversationID, asked, reply); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("conversation_id", conversationID).Msg("record conversation failed")
	}
}

// QueryStream relays answer fragments and records the full answer once the
// model finishes.
type QueryStream struct {
	Sources []Source

	answer         *rag.AnswerStream
	service        *QueryService
	ctx            context.Context
	conversationID string
	asked          model.Message
	full           strings.Builder
	finished       bool
}

func (q *QueryStream) Next() (string, error) {
	frag, err := q.answer.Next()
	if err == io.EOF {
		if !q.finished {
			q.finished = true
			q.service.record(q.ctx, q.conversationID, q.asked, q.full.String(), q.Sources)
		}
		return "", io.EOF
	}
	if err != nil {
		return "", fmt.Errorf("stream answer failed: %w", err)
	}
	q.full.WriteString(frag)
	return frag, nil
}

// Close stops generation. An answer cut short is not recorded.
func (q *QueryStream) Close() error {
	q.finished = true
	return q.answer.Close()
}

func toSources(results []rag.Result) []Source {
	sources := make([]Source, len(results))
	for i, r := range results {
		sources[i] = Source{
			DocumentID:  r.DocumentID,
			Title:       r.Title,
			ContentType: r.ContentType,
			Source:      r.Source,
			Timestamp:   r.CreatedAt,
			Relevance:   r.Relevance,
			Excerpt:     Excerpt(r.Content),
		}
	}
	return sources
}

// Excerpt shortens content to its first 200 runes, marking the cut with "...".
func Excerpt(content string) string {
	runes := []rune(content)
	if len(runes) <= excerptRunes {
		return content
	}
	return string(runes[:excerptRunes]) + "..."
}
