package analytics

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/ollo/internal/messaging"
	"go.uber.org/zap"
)

// NewConsumers creates one consumer per analytics topic, each persisting to store.
func NewConsumers(subscriber message.Subscriber, store Store, logger *zap.Logger) []messaging.Runnable {
	return []messaging.Runnable{
		messaging.NewConsumer(subscriber, TopicRateLimitExceeded, store.SaveRateLimitExceeded, logger),
		messaging.NewConsumer(subscriber, TopicStoriesPurged, store.SaveStoriesPurged, logger),
	}
}
