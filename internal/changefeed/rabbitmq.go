// Package changefeed carries story change batches between writers and live
// views over a RabbitMQ exchange.
package changefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"storydesk/internal/domain"
)

var ErrFeedClosed = errors.New("change feed closed")

type RabbitMQ struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	mu         sync.Mutex
	exchange   string
	routingKey string
	logger     *slog.Logger
}

type Config struct {
	URL        string
	Exchange   string
	RoutingKey string
}

func NewRabbitMQ(cfg Config, logger *slog.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	logger.Info("connected to rabbitmq",
		"exchange", cfg.Exchange,
		"routing_key", cfg.RoutingKey,
	)

	return &RabbitMQ{
		conn:       conn,
		channel:    ch,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
		logger:     logger,
	}, nil
}

// BatchMessage is the wire format of one change batch.
type BatchMessage struct {
	ID        string               `json:"id"`
	Events    []domain.ChangeEvent `json:"events"`
	Timestamp time.Time            `json:"timestamp"`
}

func (r *RabbitMQ) Publish(ctx context.Context, events []domain.ChangeEvent) error {
	if len(events) == 0 {
		return nil
	}

	msg := BatchMessage{
		ID:        uuid.NewString(),
		Events:    events,
		Timestamp: time.Now().UTC(),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	r.mu.Lock()
	err = r.channel.PublishWithContext(
		ctx,
		r.exchange,
		r.routingKey,
		false,
		false,
		amqp.Publishing{
			MessageId:    msg.ID,
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    msg.Timestamp,
		},
	)
	r.mu.Unlock()
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	r.logger.Debug("published change batch",
		"batch_id", msg.ID,
		"events", len(events),
	)

	return nil
}

// Subscribe binds a private queue to the exchange and delivers every batch to
// onBatch from a single goroutine. Decode failures and a closed feed go to
// onError. The returned func stops delivery and waits for the consumer to exit.
func (r *RabbitMQ) Subscribe(ctx context.Context, onBatch func([]domain.ChangeEvent), onError func(error)) (func(), error) {
	ch, err := r.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		"",
		false,
		true,
		true,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, r.routingKey, r.exchange, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	tag := "storydesk-" + uuid.NewString()
	deliveries, err := ch.Consume(q.Name, tag, true, true, false, false, nil)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("consume queue: %w", err)
	}

	r.logger.Info("subscribed to change feed", "queue", q.Name)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					select {
					case <-stop:
					default:
						onError(ErrFeedClosed)
					}
					return
				}
				var msg BatchMessage
				if err := json.Unmarshal(d.Body, &msg); err != nil {
					onError(fmt.Errorf("decode change batch: %w", err))
					continue
				}
				onBatch(msg.Events)
			}
		}
	}()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			close(stop)
			_ = ch.Cancel(tag, false)
			ch.Close()
			wg.Wait()
			r.logger.Info("unsubscribed from change feed", "queue", q.Name)
		})
	}

	return unsubscribe, nil
}

func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
