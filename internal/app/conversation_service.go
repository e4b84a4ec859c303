package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"secondbrain/internal/model"
)

const DefaultConversationTitle = "New Conversation"

type ConversationStore interface {
	Create(ctx context.Context, conv *model.Conversation) error
	GetByID(ctx context.Context, id string) (*model.Conversation, error)
	List(ctx context.Context, limit int) ([]model.Conversation, error)
	Touch(ctx context.Context, id string, at time.Time) error
}

type MessageStore interface {
	Create(ctx context.Context, message *model.Message) error
	ListByConversationID(ctx context.Context, conversationID string, limit int) ([]model.Message, error)
}

// AsyncMessagePublisher hands messages to the persistence worker.
type AsyncMessagePublisher interface {
	Publish(ctx context.Context, msg model.Message) error
}

type HistoryCache interface {
	GetHistory(ctx context.Context, conversationID string) ([]model.Message, bool, error)
	SetHistory(ctx context.Context, conversationID string, messages []model.Message) error
	Invalidate(ctx context.Context, conversationID string) error
	IsDirty(ctx context.Context, conversationID string) (bool, error)
}

// ConversationService owns the append-only message log. When no publisher is
// configured messages are written synchronously; a nil cache disables caching.
type ConversationService struct {
	conversations ConversationStore
	messages      MessageStore
	publisher     AsyncMessagePublisher
	historyCache  HistoryCache
	now           func() time.Time
}

func NewConversationService(
	conversations ConversationStore,
	messages MessageStore,
	publisher AsyncMessagePublisher,
	historyCache HistoryCache,
) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		messages:      messages,
		publisher:     publisher,
		historyCache:  historyCache,
		now:           time.Now,
	}
}

func (s *ConversationService) Create(ctx context.Context, title string) (*model.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultConversationTitle
	}
	conv := &model.Conversation{Title: title}
	if err := s.conversations.Create(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *ConversationService) List(ctx context.Context, limit int) ([]model.Conversation, error) {
	return s.conversations.List(ctx, limit)
}

// Ensure reports ErrNotFound for an unknown conversation id.
func (s *ConversationService) Ensure(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: conversation id is required", ErrInvalidInput)
	}
	conv, err := s.conversations.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if conv == nil {
		return fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	return nil
}

// History returns the oldest limit messages. The cache is bypassed while a
// write for the conversation may still be in flight.
func (s *ConversationService) History(ctx context.Context, id string, limit int) ([]model.Message, error) {
	if err := s.Ensure(ctx, id); err != nil {
		return nil, err
	}

	if s.historyCache != nil {
		dirty, err := s.historyCache.IsDirty(ctx, id)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.historyCache.GetHistory(ctx, id); cacheErr == nil && hit {
				return headMessages(cached, limit), nil
			}
		}
	}

	messages, err := s.messages.ListByConversationID(ctx, id, limit)
	if err != nil {
		return nil, err
	}
	if s.historyCache != nil {
		if dirty, dirtyErr := s.historyCache.IsDirty(ctx, id); dirtyErr == nil && !dirty {
			if err := s.historyCache.SetHistory(ctx, id, messages); err != nil {
				log.Ctx(ctx).Warn().Err(err).Str("conversation_id", id).Msg("cache history failed")
			}
		}
	}
	return messages, nil
}

// Append records messages in order and bumps the conversation's updated time.
func (s *ConversationService) Append(ctx context.Context, id string, messages ...model.Message) error {
	if s.historyCache != nil {
		if err := s.historyCache.Invalidate(ctx, id); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("conversation_id", id).Msg("invalidate history cache failed")
		}
	}

	for i := range messages {
		msg := messages[i]
		msg.ConversationID = id
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = s.now()
		}
		if s.publisher != nil {
			if err := s.publisher.Publish(ctx, msg); err != nil {
				return fmt.Errorf("enqueue message failed: %w", err)
			}
			continue
		}
		if err := s.messages.Create(ctx, &msg); err != nil {
			return err
		}
	}
	return s.conversations.Touch(ctx, id, s.now())
}

func headMessages(messages []model.Message, limit int) []model.Message {
	if limit <= 0 || limit >= len(messages) {
		return messages
	}
	return messages[:limit]
}
