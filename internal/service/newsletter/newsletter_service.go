// Package newsletter manages subscriptions and enqueues campaign dispatches.
package newsletter

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"storefront/internal/model"
	"storefront/internal/repository"
	"storefront/pkg/log"
	"storefront/pkg/queue"
	"storefront/pkg/utils"
)

// CampaignRequest is an admin request to send a newsletter.
type CampaignRequest struct {
	Subject string `json:"subject" binding:"required,max=200"`
	Body    string `json:"body" binding:"required"`
}

// NewsletterService newsletter service interface
type NewsletterService interface {
	// Subscribe adds an email to the list.
	Subscribe(ctx context.Context, email string) error

	// Unsubscribe removes an email from the list.
	Unsubscribe(ctx context.Context, email string) error

	// SendCampaign fans one message per subscriber out onto the dispatch
	// queue. Delivery happens asynchronously in the consumer.
	SendCampaign(ctx context.Context, req *CampaignRequest) (int, error)
}

// newsletterService newsletter service implementation
type newsletterService struct {
	subscriberRepo repository.SubscriberRepository
	messageQueue   queue.Queue
	topic          string
}

// NewNewsletterService creates a newsletter service
func NewNewsletterService(subscriberRepo repository.SubscriberRepository, messageQueue queue.Queue, topic string) NewsletterService {
	return &newsletterService{
		subscriberRepo: subscriberRepo,
		messageQueue:   messageQueue,
		topic:          topic,
	}
}

// Subscribe adds an email to the list
func (s *newsletterService) Subscribe(ctx context.Context, email string) error {
	if !utils.IsValidEmail(email) {
		return errors.New("invalid email address")
	}
	return s.subscriberRepo.Subscribe(ctx, email)
}

// Unsubscribe removes an email from the list
func (s *newsletterService) Unsubscribe(ctx context.Context, email string) error {
	return s.subscriberRepo.Unsubscribe(ctx, email)
}

// SendCampaign enqueues one dispatch message per subscriber
func (s *newsletterService) SendCampaign(ctx context.Context, req *CampaignRequest) (int, error) {
	emails, err := s.subscriberRepo.ListActive(ctx)
	if err != nil {
		return 0, err
	}

	enqueued := 0
	for _, email := range emails {
		msg := &model.NewsletterMessage{
			Email:     email,
			Subject:   req.Subject,
			Body:      req.Body,
			Timestamp: time.Now().Unix(),
		}
		payload, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		if err := s.messageQueue.Publish(ctx, s.topic, payload); err != nil {
			log.WithFields(map[string]interface{}{
				"email": email,
				"error": err.Error(),
			}).Error("Failed to enqueue newsletter dispatch")
			continue
		}
		enqueued++
	}

	log.WithFields(map[string]interface{}{
		"subject":     req.Subject,
		"subscribers": len(emails),
		"enqueued":    enqueued,
	}).Info("Newsletter campaign enqueued")

	return enqueued, nil
}
