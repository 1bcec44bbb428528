// Package queue abstracts the message broker behind a small interface with
// an in-memory driver for development and a Kafka driver for production.
// The storefront uses it to decouple newsletter dispatch from the API.
package queue

import (
	"context"
	"errors"
)

// Queue is the broker surface the application depends on
type Queue interface {
	// Publish sends a message to the topic
	Publish(ctx context.Context, topic string, message []byte) error

	// Subscribe registers a handler for the topic's messages
	Subscribe(ctx context.Context, topic string, handler MessageHandler) error

	// Close releases broker connections
	Close() error

	// Health reports whether the broker is reachable
	Health() error
}

// MessageHandler processes one delivered message. Returning an error leaves
// redelivery to the driver.
type MessageHandler func(ctx context.Context, topic string, message []byte) error

// QueueStats describes a queue's identity and connection state
type QueueStats struct {
	Topic         string `json:"topic"`
	ProducerID    string `json:"producer_id"`
	ConsumerGroup string `json:"consumer_group"`
	Connected     bool   `json:"connected"`
	MessagesSent  int64  `json:"messages_sent"`
	MessagesRecv  int64  `json:"messages_received"`
}

var (
	ErrQueueClosed          = errors.New("queue is closed")
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrPublishTimeout       = errors.New("publish timeout")
)
