package realtime

import (
	"encoding/json"
	"sync"
	"time"
)

// PresenceListener receives presence transitions for a room. Callbacks run on
// the mutating goroutine and must not block.
type PresenceListener func(event PresenceEvent)

// Hub coordinates websocket sessions, logical rooms and per-room presence
// state. It keeps one entry per user in each room regardless of how many
// sockets that user has open.
type Hub struct {
	mu        sync.RWMutex
	sessions  map[string]*Connection            // sessionID -> connection
	rooms     map[string]map[string]*Connection // roomID -> sessionID -> connection
	presences map[string]map[string]*Presence   // roomID -> userName -> presence
	listeners []PresenceListener
}

// NewHub constructs an initialized Hub.
func NewHub() *Hub {
	return &Hub{
		sessions:  make(map[string]*Connection),
		rooms:     make(map[string]map[string]*Connection),
		presences: make(map[string]map[string]*Presence),
	}
}

// OnPresence registers a listener for presence transitions across all rooms.
// Registration is not safe once Track is being called concurrently; wire
// listeners during startup.
func (h *Hub) OnPresence(fn PresenceListener) {
	h.listeners = append(h.listeners, fn)
}

// Track registers the connection, joins it to the room and records the user's
// presence. The joining session receives a full presence sync; other members
// receive a join event when this is the user's first session.
func (h *Hub) Track(roomID string, conn *Connection) {
	h.mu.Lock()
	h.sessions[conn.ID] = conn

	room := h.rooms[roomID]
	if room == nil {
		room = make(map[string]*Connection)
		h.rooms[roomID] = room
	}
	room[conn.ID] = conn

	state := h.presences[roomID]
	if state == nil {
		state = make(map[string]*Presence)
		h.presences[roomID] = state
	}

	first := false
	if p, ok := state[conn.UserName]; ok {
		p.Refs++
	} else {
		state[conn.UserName] = &Presence{
			UserName: conn.UserName,
			IsAdmin:  conn.IsAdmin,
			OnlineAt: time.Now(),
			Refs:     1,
		}
		first = true
	}

	snapshot := h.snapshotLocked(roomID)
	h.mu.Unlock()

	conn.Start()

	sync := PresenceEvent{Type: PresenceSync, RoomID: roomID, Presences: snapshot}
	if payload, err := json.Marshal(sync); err == nil {
		_ = conn.Send(payload)
	}
	h.notify(sync)

	if first {
		h.fanOutPresence(PresenceEvent{Type: PresenceJoin, RoomID: roomID, Presences: snapshot}, conn.ID)
	}
}

// Untrack removes the connection from the room. When it was the user's last
// session there, the remaining members receive a leave event.
func (h *Hub) Untrack(roomID string, conn *Connection) {
	h.mu.Lock()
	delete(h.sessions, conn.ID)

	room := h.rooms[roomID]
	if room != nil {
		delete(room, conn.ID)
		if len(room) == 0 {
			delete(h.rooms, roomID)
		}
	}

	last := false
	if state := h.presences[roomID]; state != nil {
		if p, ok := state[conn.UserName]; ok {
			p.Refs--
			if p.Refs <= 0 {
				delete(state, conn.UserName)
				last = true
			}
		}
		if len(state) == 0 {
			delete(h.presences, roomID)
		}
	}

	snapshot := h.snapshotLocked(roomID)
	h.mu.Unlock()

	if last {
		event := PresenceEvent{Type: PresenceLeave, RoomID: roomID, Presences: snapshot}
		h.fanOutPresence(event, "")
		h.notify(event)
	}
}

// Presences returns the current presence state of a room.
func (h *Hub) Presences(roomID string) []Presence {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snapshotLocked(roomID)
}

// Broadcast writes payload to all members of the room. excludeSessionID, when
// non-empty, skips that session.
func (h *Hub) Broadcast(roomID string, payload []byte, excludeSessionID string) int {
	h.mu.RLock()
	room := h.rooms[roomID]
	if len(room) == 0 {
		h.mu.RUnlock()
		return 0
	}

	delivered := 0
	for id, conn := range room {
		if excludeSessionID != "" && id == excludeSessionID {
			continue
		}
		if err := conn.Send(payload); err == nil {
			delivered++
		}
	}
	h.mu.RUnlock()
	return delivered
}

// Close terminates all tracked connections and clears hub state.
func (h *Hub) Close() {
	h.mu.Lock()
	sessions := make([]*Connection, 0, len(h.sessions))
	for _, conn := range h.sessions {
		sessions = append(sessions, conn)
	}
	h.sessions = make(map[string]*Connection)
	h.rooms = make(map[string]map[string]*Connection)
	h.presences = make(map[string]map[string]*Presence)
	h.mu.Unlock()

	for _, conn := range sessions {
		conn.Close(1001, "hub shutdown")
	}
}

func (h *Hub) snapshotLocked(roomID string) []Presence {
	state := h.presences[roomID]
	snapshot := make([]Presence, 0, len(state))
	for _, p := range state {
		snapshot = append(snapshot, *p)
	}
	return snapshot
}

func (h *Hub) fanOutPresence(event PresenceEvent, excludeSessionID string) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	h.Broadcast(event.RoomID, payload, excludeSessionID)
}

func (h *Hub) notify(event PresenceEvent) {
	for _, fn := range h.listeners {
		fn(event)
	}
}
