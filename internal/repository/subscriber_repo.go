package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"storefront/internal/model"
)

// SubscriberRepository newsletter subscriber repository interface
type SubscriberRepository interface {
	// Subscribe adds an email, re-subscribing silently if it exists
	Subscribe(ctx context.Context, email string) error

	// Unsubscribe removes an email
	Unsubscribe(ctx context.Context, email string) error

	// ListActive lists all subscribed emails
	ListActive(ctx context.Context) ([]string, error)
}

type subscriberRepository struct {
	db *gorm.DB
}

// NewSubscriberRepository creates a subscriber repository
func NewSubscriberRepository(db *gorm.DB) SubscriberRepository {
	return &subscriberRepository{db: db}
}

// Subscribe adds an email, ignoring duplicates
func (r *subscriberRepository) Subscribe(ctx context.Context, email string) error {
	sub := &model.Subscriber{Email: email}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(sub).Error
}

// Unsubscribe removes an email
func (r *subscriberRepository) Unsubscribe(ctx context.Context, email string) error {
	return r.db.WithContext(ctx).
		Where("email = ?", email).
		Delete(&model.Subscriber{}).Error
}

// ListActive lists all subscribed emails
func (r *subscriberRepository) ListActive(ctx context.Context) ([]string, error) {
	var emails []string
	err := r.db.WithContext(ctx).
		Model(&model.Subscriber{}).
		Pluck("email", &emails).Error
	return emails, err
}
