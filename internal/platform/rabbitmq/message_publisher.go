package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"secondbrain/internal/model"
)

// MessagePublisher hands conversation messages to the persistence worker.
// It keeps one channel open and reopens it after the broker closes it.
type MessagePublisher struct {
	conn      *amqp.Connection
	queueName string

	mu sync.Mutex
	ch *amqp.Channel
}

func NewMessagePublisher(conn *amqp.Connection, queueName string) *MessagePublisher {
	return &MessagePublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *MessagePublisher) Publish(ctx context.Context, msg model.Message) error {
	payload, err := EncodeMessage(msg)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx, "", p.queueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         payload,
		DeliveryMode: amqp.Persistent,
		Type:         "conversation.message",
	})
	if err != nil {
		_ = ch.Close()
		p.ch = nil
		return fmt.Errorf("publish message failed: %w", err)
	}
	return nil
}

// channel must be called with mu held.
func (p *MessagePublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	if err := DeclareQueue(ch, p.queueName); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare queue failed: %w", err)
	}
	p.ch = ch
	return ch, nil
}

func (p *MessagePublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return nil
	}
	err := p.ch.Close()
	p.ch = nil
	if errors.Is(err, amqp.ErrClosed) {
		return nil
	}
	return err
}

func EncodeMessage(msg model.Message) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal message payload failed: %w", err)
	}
	return payload, nil
}

func DecodeMessage(body []byte) (model.Message, error) {
	var msg model.Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return model.Message{}, fmt.Errorf("decode message payload failed: %w", err)
	}
	if msg.ConversationID == "" || msg.Role == "" {
		return model.Message{}, fmt.Errorf("decode message payload failed: missing conversation or role")
	}
	return msg, nil
}
