package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AISenderName sentinel sender name marking synthetic messages. Checked by
// the escalation guard, so it must stay stable across releases.
const AISenderName = "AI Assistant"

// ChatMessage support chat message. ID is a client- or server-generated UUID
// and is the sole deduplication key within a room.
type ChatMessage struct {
	ID          string      `gorm:"type:varchar(36);primaryKey" json:"id"`
	RoomID      string      `gorm:"type:varchar(64);not null;index" json:"room_id"`
	SenderName  string      `gorm:"type:varchar(100);not null" json:"sender_name"`
	Content     string      `gorm:"type:text;not null" json:"content"`
	FromAI      bool        `gorm:"not null;default:false" json:"from_ai"`
	ReadByUser  bool        `gorm:"not null;default:false" json:"read_by_user"`
	ReadByAdmin bool        `gorm:"not null;default:false" json:"read_by_admin"`
	Attachment  *Attachment `gorm:"type:json" json:"attachment,omitempty"`
	CreatedAt   time.Time   `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`

	// IsTyping marks a transient typing-indicator placeholder. Never
	// persisted and never considered by the escalation guard.
	IsTyping bool `gorm:"-" json:"is_typing,omitempty"`
}

// TableName set name
func (ChatMessage) TableName() string {
	return "chat_messages"
}

// IsFromAI reports whether the message was authored by the AI assistant
func (m *ChatMessage) IsFromAI() bool {
	return m.FromAI || m.SenderName == AISenderName
}

// Attachment optional file metadata attached to a message
type Attachment struct {
	Name string `json:"name"`
	Type string `json:"type"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// Value implement driver.Valuer interface
func (a *Attachment) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	return json.Marshal(a)
}

// Scan implement sql.Scanner interface
func (a *Attachment) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into Attachment", value)
	}

	return json.Unmarshal(bytes, a)
}
