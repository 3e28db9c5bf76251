package messaging

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

// Runnable represents a component that can be started and shutdown.
type Runnable interface {
	Start(ctx context.Context) error
	Shutdown() error
}

// ConsumerGroup runs topic consumers and background jobs (such as the cleanup
// scheduler) under one lifecycle. Members start in the order they were added
// and stop in reverse. The subscriber may be nil when no member consumes
// messages.
type ConsumerGroup struct {
	members    []Runnable
	subscriber message.Subscriber
	logger     *zap.Logger
}

// NewConsumerGroup creates a new consumer group.
func NewConsumerGroup(subscriber message.Subscriber, logger *zap.Logger) *ConsumerGroup {
	return &ConsumerGroup{
		subscriber: subscriber,
		logger:     logger,
	}
}

// Add registers members with the group.
func (g *ConsumerGroup) Add(members ...Runnable) {
	g.members = append(g.members, members...)
}

// Len returns the number of registered members.
func (g *ConsumerGroup) Len() int {
	return len(g.members)
}

// Start starts every member. If one fails, the members already started are
// shut down and the error is returned.
func (g *ConsumerGroup) Start(ctx context.Context) error {
	for i, member := range g.members {
		if err := member.Start(ctx); err != nil {
			_ = shutdownAll(g.members[:i])

			return fmt.Errorf("failed to start group member %d: %w", i, err)
		}
	}

	g.logger.Info("consumer group started", zap.Int("members", len(g.members)))

	return nil
}

// Shutdown stops every member, then closes the subscriber. All errors are
// returned joined.
func (g *ConsumerGroup) Shutdown() error {
	g.logger.Info("shutting down consumer group")

	err := shutdownAll(g.members)

	if g.subscriber != nil {
		err = errors.Join(err, g.subscriber.Close())
	}

	return err
}

func shutdownAll(members []Runnable) error {
	var errs []error

	for i := len(members) - 1; i >= 0; i-- {
		if err := members[i].Shutdown(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
