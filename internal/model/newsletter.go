package model

import (
	"time"
)

// Subscriber newsletter subscriber
type Subscriber struct {
	ID             uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Email          string     `gorm:"type:varchar(100);uniqueIndex;not null" json:"email"`
	Subscribed     bool       `gorm:"not null;default:true;index" json:"subscribed"`
	UnsubscribedAt *time.Time `gorm:"type:timestamp" json:"unsubscribed_at,omitempty"`
	CreatedAt      time.Time  `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName set name
func (Subscriber) TableName() string {
	return "subscribers"
}

// NewsletterMessage newsletter message for MQ
type NewsletterMessage struct {
	Email     string `json:"email"`     // Recipient email
	Subject   string `json:"subject"`   // Subject line
	Body      string `json:"body"`      // Rendered body
	Timestamp int64  `json:"timestamp"` // Enqueue timestamp
}
