package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Rican7/retry"
	"github.com/Rican7/retry/backoff"
	"github.com/Rican7/retry/strategy"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

const (
	defaultHandleAttempts = 3
	defaultHandleBackoff  = 50 * time.Millisecond
)

// Handler processes a single event.
type Handler[T any] func(ctx context.Context, event *T) error

// Consumer decodes JSON events from one topic and passes them to a typed handler.
//
// A failing handler is retried in place with linear backoff; once the attempts
// are used up the message is nacked so the subscriber redelivers it later.
// Payloads that cannot be decoded are acked and dropped, since redelivery
// would never succeed.
type Consumer[T any] struct {
	subscriber message.Subscriber
	topic      string
	handler    Handler[T]
	logger     *zap.Logger
	attempts   uint
	backoff    time.Duration
	cancel     context.CancelFunc
	done       chan struct{}
}

// ConsumerOption configures a Consumer.
type ConsumerOption func(*consumerConfig)

type consumerConfig struct {
	attempts uint
	backoff  time.Duration
}

// WithAttempts sets how many times the handler runs before a message is nacked.
func WithAttempts(attempts uint) ConsumerOption {
	return func(c *consumerConfig) {
		if attempts > 0 {
			c.attempts = attempts
		}
	}
}

// WithBackoff sets the linear backoff step between handler attempts.
func WithBackoff(step time.Duration) ConsumerOption {
	return func(c *consumerConfig) {
		c.backoff = step
	}
}

// NewConsumer creates a consumer for one event type.
func NewConsumer[T any](
	subscriber message.Subscriber,
	topic string,
	handler Handler[T],
	logger *zap.Logger,
	opts ...ConsumerOption,
) *Consumer[T] {
	cfg := consumerConfig{attempts: defaultHandleAttempts, backoff: defaultHandleBackoff}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Consumer[T]{
		subscriber: subscriber,
		topic:      topic,
		handler:    handler,
		logger:     logger.With(zap.String("topic", topic)),
		attempts:   cfg.attempts,
		backoff:    cfg.backoff,
		done:       make(chan struct{}),
	}
}

// Topic returns the topic this consumer subscribes to.
func (c *Consumer[T]) Topic() string {
	return c.topic
}

// Start subscribes and processes messages in the background until ctx is
// cancelled, Shutdown is called, or the subscription channel closes.
func (c *Consumer[T]) Start(ctx context.Context) error {
	msgs, err := c.subscriber.Subscribe(ctx, c.topic)
	if err != nil {
		return err
	}

	ctx, c.cancel = context.WithCancel(ctx)

	go c.consumeLoop(ctx, msgs)

	return nil
}

func (c *Consumer[T]) consumeLoop(ctx context.Context, msgs <-chan *message.Message) {
	defer close(c.done)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}

			c.handleMessage(ctx, msg)
		}
	}
}

func (c *Consumer[T]) handleMessage(ctx context.Context, msg *message.Message) {
	logger := c.logger.With(zap.String("message_id", msg.UUID))

	var event T
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		logger.Error("dropping undecodable event", zap.Error(err))
		msg.Ack()

		return
	}

	err := retry.Retry(func(attempt uint) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := c.handler(ctx, &event); err != nil {
			logger.Warn("event handler failed", zap.Uint("attempt", attempt), zap.Error(err))

			return err
		}

		return nil
	},
		strategy.Limit(c.attempts),
		strategy.Backoff(backoff.Linear(c.backoff)),
	)
	if err != nil {
		logger.Error("failed to handle event, requesting redelivery", zap.Error(err))
		msg.Nack()

		return
	}

	msg.Ack()

	logger.Debug("processed event")
}

// Shutdown stops the consumer and waits for the in-flight message to finish.
// It is a no-op when the consumer was never started.
func (c *Consumer[T]) Shutdown() error {
	if c.cancel == nil {
		return nil
	}

	c.cancel()
	<-c.done

	return nil
}
