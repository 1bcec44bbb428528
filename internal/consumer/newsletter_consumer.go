package consumer

import (
	"context"
	"encoding/json"

	"storefront/internal/model"
	"storefront/pkg/log"
	"storefront/pkg/queue"
)

// Mailer delivers one email.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// NewsletterConsumer drains the newsletter dispatch topic and hands each
// message to the mailer. A failed delivery is logged and dropped; campaigns
// are best effort.
type NewsletterConsumer struct {
	messageQueue queue.Queue
	mailer       Mailer
	topic        string
}

// NewNewsletterConsumer creates a newsletter consumer
func NewNewsletterConsumer(messageQueue queue.Queue, mailer Mailer, topic string) *NewsletterConsumer {
	return &NewsletterConsumer{
		messageQueue: messageQueue,
		mailer:       mailer,
		topic:        topic,
	}
}

// Start subscribes to the dispatch topic. It returns once the subscription is
// registered; handling runs on the queue's goroutines until ctx is cancelled.
func (c *NewsletterConsumer) Start(ctx context.Context) error {
	log.Info("Starting newsletter consumer")
	return c.messageQueue.Subscribe(ctx, c.topic, c.handle)
}

func (c *NewsletterConsumer) handle(ctx context.Context, topic string, message []byte) error {
	var msg model.NewsletterMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		log.WithFields(map[string]interface{}{
			"topic": topic,
			"error": err.Error(),
		}).Error("Malformed newsletter message dropped")
		return nil
	}

	if err := c.mailer.Send(ctx, msg.Email, msg.Subject, msg.Body); err != nil {
		log.WithFields(map[string]interface{}{
			"email": msg.Email,
			"error": err.Error(),
		}).Error("Newsletter delivery failed")
		return err
	}
	return nil
}
