package worker

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"secondbrain/internal/model"
	"secondbrain/internal/platform/rabbitmq"
)

type MessageStore interface {
	Create(ctx context.Context, message *model.Message) error
}

// MessagePersistWorker drains the conversation message queue into MySQL.
type MessagePersistWorker struct {
	conn      *amqp.Connection
	store     MessageStore
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewMessagePersistWorker(conn *amqp.Connection, store MessageStore, queueName string) *MessagePersistWorker {
	return &MessagePersistWorker{
		conn:      conn,
		store:     store,
		queueName: queueName,
	}
}

func (w *MessagePersistWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}
	if err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}
	if err := ch.Qos(16, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()
		w.run(workerCtx, deliveries)
	}()

	log.Info().Str("queue", w.queueName).Msg("message persist worker started")
	return nil
}

func (w *MessagePersistWorker) run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			if err := w.handle(ctx, d.Body); err != nil {
				log.Error().Err(err).Str("queue", w.queueName).Msg("worker drop message")
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (w *MessagePersistWorker) handle(ctx context.Context, body []byte) error {
	msg, err := rabbitmq.DecodeMessage(body)
	if err != nil {
		return err
	}
	if err := w.store.Create(ctx, &msg); err != nil {
		return fmt.Errorf("persist message failed: %w", err)
	}
	return nil
}

func (w *MessagePersistWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
