package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"storefront/internal/model"
)

// ChatRepository chat message repository interface
type ChatRepository interface {
	// Load a room's history, oldest first, capped at limit
	GetMessages(ctx context.Context, roomID string, limit int) ([]*model.ChatMessage, error)

	// Persist a message. Saving the same message ID twice is a no-op,
	// the first write wins.
	SaveMessage(ctx context.Context, msg *model.ChatMessage) error

	// Persist a message and report whether it was new. A duplicate ID
	// inserts nothing and returns false.
	InsertMessage(ctx context.Context, msg *model.ChatMessage) (bool, error)

	// Report whether an AI reply exists in the room after the given time
	HasAIReplyAfter(ctx context.Context, roomID string, after time.Time) (bool, error)

	// Flip the read flag for one side of the conversation. adminView
	// marks the customer's messages as read by the admin; otherwise the
	// admin/AI messages are marked as read by the customer.
	MarkMessagesAsRead(ctx context.Context, roomID string, adminView bool) error

	// Count messages in a room
	CountMessages(ctx context.Context, roomID string) (int64, error)
}

type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository creates a chat repository
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

// GetMessages loads a room's history, oldest first
func (r *chatRepository) GetMessages(ctx context.Context, roomID string, limit int) ([]*model.ChatMessage, error) {
	var messages []*model.ChatMessage
	db := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at ASC")
	if limit > 0 {
		db = db.Limit(limit)
	}
	err := db.Find(&messages).Error
	return messages, err
}

// SaveMessage persists a message, ignoring duplicate IDs
func (r *chatRepository) SaveMessage(ctx context.Context, msg *model.ChatMessage) error {
	_, err := r.InsertMessage(ctx, msg)
	return err
}

// InsertMessage persists a message and reports whether a row was written
func (r *chatRepository) InsertMessage(ctx context.Context, msg *model.ChatMessage) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(msg)
	return result.RowsAffected > 0, result.Error
}

// HasAIReplyAfter reports whether an AI reply landed in the room after the
// given time
func (r *chatRepository) HasAIReplyAfter(ctx context.Context, roomID string, after time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ChatMessage{}).
		Where("room_id = ? AND from_ai = ? AND created_at > ?", roomID, true, after).
		Count(&count).Error
	return count > 0, err
}

// MarkMessagesAsRead flips the read flag for one side of the room
func (r *chatRepository) MarkMessagesAsRead(ctx context.Context, roomID string, adminView bool) error {
	db := r.db.WithContext(ctx).Model(&model.ChatMessage{})
	if adminView {
		return db.
			Where("room_id = ? AND sender_name = ? AND read_by_admin = ?", roomID, roomID, false).
			Update("read_by_admin", true).Error
	}
	return db.
		Where("room_id = ? AND sender_name <> ? AND read_by_user = ?", roomID, roomID, false).
		Update("read_by_user", true).Error
}

// CountMessages counts messages in a room
func (r *chatRepository) CountMessages(ctx context.Context, roomID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ChatMessage{}).
		Where("room_id = ?", roomID).
		Count(&count).Error
	return count, err
}
