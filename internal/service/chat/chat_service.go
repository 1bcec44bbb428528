// Package chat implements the support chat room flow: message persistence with
// id-based deduplication, presence-derived admin detection, and an AI reply
// fallback when no admin is online to answer.
package chat

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"storefront/internal/config"
	"storefront/internal/model"
	"storefront/internal/monitor"
	"storefront/internal/realtime"
	"storefront/internal/repository"
	"storefront/pkg/lock"
	"storefront/pkg/log"
)

// Channel is the realtime room surface the service needs. *realtime.Hub
// satisfies it.
type Channel interface {
	Track(roomID string, conn *realtime.Connection)
	Untrack(roomID string, conn *realtime.Connection)
	Broadcast(roomID string, payload []byte, excludeSessionID string) int
	Presences(roomID string) []realtime.Presence
}

// Generator produces an AI reply for a customer message.
type Generator interface {
	Generate(ctx context.Context, userPrompt string) (string, error)
}

// EventType identifies a frame pushed over the room channel.
type EventType string

const (
	// EventMessage carries a chat message.
	EventMessage EventType = "message"
	// EventTyping announces a transient typing indicator. Never persisted.
	EventTyping EventType = "typing"
	// EventTypingStop withdraws a typing indicator.
	EventTypingStop EventType = "typing_stop"
)

// Event is the frame serialized onto the room channel.
type Event struct {
	Type    EventType          `json:"type"`
	Message *model.ChatMessage `json:"message,omitempty"`
}

// ChatService support chat service interface
type ChatService interface {
	// Join subscribes the connection to the room and tracks its presence.
	// It returns a session holding the room's transcript state.
	Join(ctx context.Context, roomID string, conn *realtime.Connection) (*Session, error)

	// Leave withdraws the connection's presence from the room.
	Leave(session *Session)

	// History returns the room's persisted transcript. An empty room gets
	// a welcome message first, so every room opens with the same turn.
	History(ctx context.Context, roomID string) ([]*model.ChatMessage, error)

	// Ingest processes one incoming message: dedup by id, persist,
	// broadcast, and escalate to the AI when the room qualifies.
	Ingest(ctx context.Context, session *Session, msg *model.ChatMessage) error

	// Send posts a message arriving over plain HTTP, outside any live
	// websocket session. Same dedup and escalation rules as Ingest.
	Send(ctx context.Context, roomID string, msg *model.ChatMessage) error

	// MarkRead flips the unread flags for one side of the room.
	MarkRead(ctx context.Context, roomID string, adminView bool) error

	// AdminOnline reports whether any admin is present in the room.
	AdminOnline(roomID string) bool
}

// chatService support chat service implementation
type chatService struct {
	repo      repository.ChatRepository
	channel   Channel
	generator Generator
	redis     *redis.Client
	cfg       config.ChatConfig
	metrics   *monitor.MetricsCollector
}

// NewChatService creates a support chat service. redis and metrics may be nil;
// the escalation lock and counters are skipped when they are.
func NewChatService(
	repo repository.ChatRepository,
	channel Channel,
	generator Generator,
	redisClient *redis.Client,
	cfg config.ChatConfig,
	metrics *monitor.MetricsCollector,
) ChatService {
	return &chatService{
		repo:      repo,
		channel:   channel,
		generator: generator,
		redis:     redisClient,
		cfg:       cfg,
		metrics:   metrics,
	}
}

// Join subscribes the connection to the room
func (s *chatService) Join(ctx context.Context, roomID string, conn *realtime.Connection) (*Session, error) {
	session := newSession(roomID, conn)

	session.setState(StateLoadingHistory)
	history, err := s.History(ctx, roomID)
	if err != nil {
		return nil, err
	}
	for _, msg := range history {
		session.remember(msg)
	}

	s.channel.Track(roomID, conn)
	session.setState(StateReady)

	if s.metrics != nil {
		s.metrics.SetPresences(roomID, len(s.channel.Presences(roomID)))
	}

	log.WithFields(map[string]interface{}{
		"room_id": roomID,
		"user":    conn.UserName,
		"admin":   conn.IsAdmin,
	}).Info("Chat session joined")

	return session, nil
}

// Leave withdraws the connection's presence
func (s *chatService) Leave(session *Session) {
	s.channel.Untrack(session.RoomID, session.conn)
	if s.metrics != nil {
		s.metrics.SetPresences(session.RoomID, len(s.channel.Presences(session.RoomID)))
	}
}

// History returns the room's transcript, seeding empty rooms with a welcome
// message
func (s *chatService) History(ctx context.Context, roomID string) ([]*model.ChatMessage, error) {
	messages, err := s.repo.GetMessages(ctx, roomID, s.cfg.HistoryLimit)
	if err != nil {
		return nil, err
	}
	if len(messages) > 0 {
		return messages, nil
	}

	welcome := &model.ChatMessage{
		ID:         uuid.NewString(),
		RoomID:     roomID,
		SenderName: model.AISenderName,
		Content:    s.cfg.WelcomeMessage,
		FromAI:     true,
		CreatedAt:  time.Now(),
	}
	if err := s.repo.SaveMessage(ctx, welcome); err != nil {
		return nil, err
	}
	return []*model.ChatMessage{welcome}, nil
}

// Ingest processes one incoming message
func (s *chatService) Ingest(ctx context.Context, session *Session, msg *model.ChatMessage) error {
	// Typing indicators are relayed but never persisted and never trigger
	// an AI reply.
	if msg.IsTyping {
		s.broadcast(session.RoomID, Event{Type: EventTyping, Message: msg}, session.conn.ID)
		return nil
	}

	// Clients without an id of their own get one here, before dedup, so
	// two id-less frames never collapse into each other.
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	// Replaying a message id is a no-op for the transcript and storage.
	if !session.remember(msg) {
		return nil
	}

	msg.RoomID = session.RoomID
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	if err := s.repo.SaveMessage(ctx, msg); err != nil {
		return err
	}
	if err := s.repo.MarkMessagesAsRead(ctx, session.RoomID, false); err != nil {
		log.WithFields(map[string]interface{}{
			"room_id": session.RoomID,
			"error":   err.Error(),
		}).Warn("Failed to mark messages as read")
	}

	s.broadcast(session.RoomID, Event{Type: EventMessage, Message: msg}, session.conn.ID)

	if s.metrics != nil {
		kind := "user"
		if msg.IsFromAI() {
			kind = "ai"
		}
		s.metrics.CountChatMessage(kind)
	}

	if s.shouldEscalate(session, msg) {
		s.escalate(ctx, session.RoomID, session.conn.ID, msg, session)
	}
	return nil
}

// Send persists and broadcasts a message posted over HTTP. The escalation
// window is read from storage instead of session state, so a reply already
// generated for a websocket session is still seen.
func (s *chatService) Send(ctx context.Context, roomID string, msg *model.ChatMessage) error {
	if msg.IsTyping {
		s.broadcast(roomID, Event{Type: EventTyping, Message: msg}, "")
		return nil
	}

	msg.RoomID = roomID
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	inserted, err := s.repo.InsertMessage(ctx, msg)
	if err != nil {
		return err
	}
	if !inserted {
		// Duplicate id, first write won.
		return nil
	}

	if err := s.repo.MarkMessagesAsRead(ctx, roomID, false); err != nil {
		log.WithFields(map[string]interface{}{
			"room_id": roomID,
			"error":   err.Error(),
		}).Warn("Failed to mark messages as read")
	}

	s.broadcast(roomID, Event{Type: EventMessage, Message: msg}, "")
	if s.metrics != nil {
		s.metrics.CountChatMessage("user")
	}

	// Rooms are keyed by the customer's user name; only the customer's own
	// messages escalate.
	if msg.IsFromAI() || msg.SenderName != roomID || s.AdminOnline(roomID) {
		return nil
	}
	replied, err := s.repo.HasAIReplyAfter(ctx, roomID, msg.CreatedAt)
	if err != nil {
		log.WithFields(map[string]interface{}{
			"room_id": roomID,
			"error":   err.Error(),
		}).Warn("Failed to check for an existing AI reply")
		return nil
	}
	if !replied {
		s.escalate(ctx, roomID, uuid.NewString(), msg, nil)
	}
	return nil
}

// MarkRead flips the unread flags for one side of the room
func (s *chatService) MarkRead(ctx context.Context, roomID string, adminView bool) error {
	return s.repo.MarkMessagesAsRead(ctx, roomID, adminView)
}

// AdminOnline reports whether any admin is present in the room
func (s *chatService) AdminOnline(roomID string) bool {
	return realtime.AnyAdminOnline(s.channel.Presences(roomID))
}

// shouldEscalate applies the escalation rule: no admin online, the message is
// the end-user's own, and no AI reply has already landed after it.
func (s *chatService) shouldEscalate(session *Session, msg *model.ChatMessage) bool {
	if msg.IsFromAI() {
		return false
	}
	if msg.SenderName != session.UserName() {
		return false
	}
	if s.AdminOnline(session.RoomID) {
		return false
	}
	return !session.aiRepliedAfter(msg.CreatedAt)
}

// escalate generates one AI reply for the message. Failures are silent to the
// transcript: the typing indicator is withdrawn and no reply appears. session
// may be nil for messages posted outside a websocket session.
func (s *chatService) escalate(ctx context.Context, roomID, owner string, msg *model.ChatMessage, session *Session) {
	if s.redis != nil {
		guard := lock.NewRedisLock(s.redis, "chat:escalate:"+msg.ID, owner, s.cfg.EscalationLockTTL)
		if err := guard.Lock(ctx); err != nil {
			// Another instance is already answering this message.
			return
		}
		defer func() {
			if err := guard.Unlock(ctx); err != nil {
				log.Warnf("Failed to release escalation lock: %v", err)
			}
		}()
	}

	indicator := &model.ChatMessage{
		ID:         uuid.NewString(),
		RoomID:     roomID,
		SenderName: model.AISenderName,
		IsTyping:   true,
	}
	s.broadcast(roomID, Event{Type: EventTyping, Message: indicator}, "")

	started := time.Now()
	replyText, err := s.generator.Generate(ctx, msg.Content)
	if s.metrics != nil {
		s.metrics.ObserveAIGeneration(time.Since(started))
	}
	if err != nil || replyText == "" {
		s.broadcast(roomID, Event{Type: EventTypingStop, Message: indicator}, "")
		if s.metrics != nil {
			s.metrics.CountEscalation("failed")
		}
		if err != nil {
			log.WithFields(map[string]interface{}{
				"room_id":    roomID,
				"message_id": msg.ID,
				"error":      err.Error(),
			}).Error("AI reply generation failed")
		}
		return
	}

	reply := &model.ChatMessage{
		ID:         uuid.NewString(),
		RoomID:     roomID,
		SenderName: model.AISenderName,
		Content:    replyText,
		FromAI:     true,
		CreatedAt:  time.Now(),
	}

	if err := s.repo.SaveMessage(ctx, reply); err != nil {
		s.broadcast(roomID, Event{Type: EventTypingStop, Message: indicator}, "")
		if s.metrics != nil {
			s.metrics.CountEscalation("failed")
		}
		log.WithFields(map[string]interface{}{
			"room_id": roomID,
			"error":   err.Error(),
		}).Error("Failed to persist AI reply")
		return
	}

	if session != nil {
		session.remember(reply)
	}
	s.broadcast(roomID, Event{Type: EventTypingStop, Message: indicator}, "")
	s.broadcast(roomID, Event{Type: EventMessage, Message: reply}, "")

	if s.metrics != nil {
		s.metrics.CountEscalation("replied")
		s.metrics.CountChatMessage("ai")
	}
}

func (s *chatService) broadcast(roomID string, event Event, excludeSessionID string) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	s.channel.Broadcast(roomID, payload, excludeSessionID)
}
