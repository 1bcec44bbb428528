package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"storefront/internal/model"
)

func setupChatTestDB() (*gorm.DB, sqlmock.Sqlmock, error) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		return nil, nil, err
	}

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	if err != nil {
		return nil, nil, err
	}

	return gormDB, mock, nil
}

func TestChatRepository_SaveMessage(t *testing.T) {
	db, mock, err := setupChatTestDB()
	if err != nil {
		t.Fatalf("Failed to setup test database: %v", err)
	}
	defer func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	}()

	repo := NewChatRepository(db)

	msg := &model.ChatMessage{
		ID:         "b2f6f5a0-1111-4222-8333-444455556666",
		RoomID:     "alice",
		SenderName: "alice",
		Content:    "my order never arrived",
		CreatedAt:  time.Now(),
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `chat_messages` .* ON DUPLICATE KEY UPDATE").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err = repo.SaveMessage(context.Background(), msg)
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %v", err)
	}
}

func TestChatRepository_SaveMessage_Duplicate(t *testing.T) {
	db, mock, err := setupChatTestDB()
	if err != nil {
		t.Fatalf("Failed to setup test database: %v", err)
	}
	defer func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	}()

	repo := NewChatRepository(db)

	msg := &model.ChatMessage{
		ID:         "b2f6f5a0-1111-4222-8333-444455556666",
		RoomID:     "alice",
		SenderName: "alice",
		Content:    "my order never arrived",
		CreatedAt:  time.Now(),
	}

	// Duplicate IDs hit the conflict clause: zero rows affected, no error.
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `chat_messages` .* ON DUPLICATE KEY UPDATE").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err = repo.SaveMessage(context.Background(), msg)
	if err != nil {
		t.Errorf("Expected no error on duplicate, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %v", err)
	}
}

func TestChatRepository_InsertMessage(t *testing.T) {
	db, mock, err := setupChatTestDB()
	if err != nil {
		t.Fatalf("Failed to setup test database: %v", err)
	}
	defer func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	}()

	repo := NewChatRepository(db)

	msg := &model.ChatMessage{
		ID:         "c3a7e6b1-2222-4333-9444-555566667777",
		RoomID:     "alice",
		SenderName: "alice",
		Content:    "is the store open today?",
		CreatedAt:  time.Now(),
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `chat_messages` .* ON DUPLICATE KEY UPDATE").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	inserted, err := repo.InsertMessage(context.Background(), msg)
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if !inserted {
		t.Error("Expected a fresh id to report inserted")
	}

	// Replaying the id affects zero rows and reports not inserted.
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `chat_messages` .* ON DUPLICATE KEY UPDATE").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	inserted, err = repo.InsertMessage(context.Background(), msg)
	if err != nil {
		t.Errorf("Expected no error on duplicate, got %v", err)
	}
	if inserted {
		t.Error("Expected a duplicate id to report not inserted")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %v", err)
	}
}

func TestChatRepository_HasAIReplyAfter(t *testing.T) {
	db, mock, err := setupChatTestDB()
	if err != nil {
		t.Fatalf("Failed to setup test database: %v", err)
	}
	defer func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	}()

	repo := NewChatRepository(db)
	asked := time.Now()

	countRows := sqlmock.NewRows([]string{"count"}).AddRow(1)
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `chat_messages` WHERE room_id = \\? AND from_ai = \\? AND created_at > \\?").
		WithArgs("alice", true, asked).
		WillReturnRows(countRows)

	replied, err := repo.HasAIReplyAfter(context.Background(), "alice", asked)
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if !replied {
		t.Error("Expected an existing reply to be found")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %v", err)
	}
}

func TestChatRepository_GetMessages(t *testing.T) {
	db, mock, err := setupChatTestDB()
	if err != nil {
		t.Fatalf("Failed to setup test database: %v", err)
	}
	defer func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	}()

	repo := NewChatRepository(db)

	rows := sqlmock.NewRows([]string{"id", "room_id", "sender_name", "content", "from_ai"}).
		AddRow("m1", "alice", "alice", "hello", false).
		AddRow("m2", "alice", model.AISenderName, "Hi! How can I help?", true)

	mock.ExpectQuery("SELECT \\* FROM `chat_messages` WHERE room_id = \\? ORDER BY created_at ASC LIMIT \\?").
		WithArgs("alice", 200).
		WillReturnRows(rows)

	messages, err := repo.GetMessages(context.Background(), "alice", 200)
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(messages))
	}
	if messages[0].ID != "m1" {
		t.Errorf("Expected oldest message first, got %s", messages[0].ID)
	}
	if !messages[1].FromAI {
		t.Error("Expected second message to be flagged as AI")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %v", err)
	}
}

func TestChatRepository_GetMessages_EmptyRoom(t *testing.T) {
	db, mock, err := setupChatTestDB()
	if err != nil {
		t.Fatalf("Failed to setup test database: %v", err)
	}
	defer func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	}()

	repo := NewChatRepository(db)

	rows := sqlmock.NewRows([]string{"id", "room_id", "sender_name", "content", "from_ai"})

	mock.ExpectQuery("SELECT \\* FROM `chat_messages` WHERE room_id = \\? ORDER BY created_at ASC LIMIT \\?").
		WithArgs("bob", 200).
		WillReturnRows(rows)

	messages, err := repo.GetMessages(context.Background(), "bob", 200)
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("Expected empty history, got %d messages", len(messages))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %v", err)
	}
}

func TestChatRepository_MarkMessagesAsRead(t *testing.T) {
	db, mock, err := setupChatTestDB()
	if err != nil {
		t.Fatalf("Failed to setup test database: %v", err)
	}
	defer func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	}()

	repo := NewChatRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `chat_messages` SET").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	err = repo.MarkMessagesAsRead(context.Background(), "alice", true)
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %v", err)
	}
}

func TestChatRepository_CountMessages(t *testing.T) {
	db, mock, err := setupChatTestDB()
	if err != nil {
		t.Fatalf("Failed to setup test database: %v", err)
	}
	defer func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	}()

	repo := NewChatRepository(db)

	countRows := sqlmock.NewRows([]string{"count"}).AddRow(5)
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `chat_messages` WHERE room_id = \\?").
		WithArgs("alice").
		WillReturnRows(countRows)

	count, err := repo.CountMessages(context.Background(), "alice")
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if count != 5 {
		t.Errorf("Expected count 5, got %d", count)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %v", err)
	}
}

func TestChatRepositoryInterface(t *testing.T) {
	db, _, err := setupChatTestDB()
	if err != nil {
		t.Fatalf("Failed to setup test database: %v", err)
	}
	defer func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	}()

	var _ ChatRepository = NewChatRepository(db)
}
