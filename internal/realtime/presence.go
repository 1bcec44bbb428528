package realtime

import "time"

// Presence is one user's entry in a room's presence state. A user with
// multiple open sockets still appears once; Refs counts the sessions.
type Presence struct {
	UserName string    `json:"user_name"`
	IsAdmin  bool      `json:"is_admin"`
	OnlineAt time.Time `json:"online_at"`
	Refs     int       `json:"-"`
}

// PresenceEventType identifies a presence state transition.
type PresenceEventType string

const (
	// PresenceSync is delivered once to a joining session with the full
	// current room state.
	PresenceSync PresenceEventType = "presence_sync"
	// PresenceJoin is delivered when a user's first session enters a room.
	PresenceJoin PresenceEventType = "presence_join"
	// PresenceLeave is delivered when a user's last session leaves a room.
	PresenceLeave PresenceEventType = "presence_leave"
)

// PresenceEvent is the payload fanned out to room members when presence
// changes.
type PresenceEvent struct {
	Type      PresenceEventType `json:"type"`
	RoomID    string            `json:"room_id"`
	Presences []Presence        `json:"presences"`
}

// AnyAdminOnline reports whether at least one admin is present. It inspects
// presence state only; it never consults roles stored elsewhere.
func AnyAdminOnline(presences []Presence) bool {
	for _, p := range presences {
		if p.IsAdmin {
			return true
		}
	}
	return false
}
