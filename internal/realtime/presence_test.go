package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnyAdminOnline(t *testing.T) {
	tests := []struct {
		name      string
		presences []Presence
		expected  bool
	}{
		{
			name:      "empty room",
			presences: nil,
			expected:  false,
		},
		{
			name: "customers only",
			presences: []Presence{
				{UserName: "alice", IsAdmin: false},
				{UserName: "bob", IsAdmin: false},
			},
			expected: false,
		},
		{
			name: "one admin present",
			presences: []Presence{
				{UserName: "alice", IsAdmin: false},
				{UserName: "support", IsAdmin: true},
			},
			expected: true,
		},
		{
			name: "admin only",
			presences: []Presence{
				{UserName: "support", IsAdmin: true},
			},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AnyAdminOnline(tt.presences))
		})
	}
}

// wsTestServer upgrades every request and hands the server-side connection
// to the test through conns.
func wsTestServer(t *testing.T, conns chan<- *websocket.Conn) *httptest.Server {
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		conns <- ws
	}))
}

func dial(t *testing.T, url string) *websocket.Conn {
	wsURL := "ws" + strings.TrimPrefix(url, "http")
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	return client
}

func readEvent(t *testing.T, client *websocket.Conn) PresenceEvent {
	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := client.ReadMessage()
	require.NoError(t, err)

	var event PresenceEvent
	require.NoError(t, json.Unmarshal(payload, &event))
	return event
}

func TestHub_TrackDeliversSyncAndJoin(t *testing.T) {
	serverConns := make(chan *websocket.Conn, 4)
	srv := wsTestServer(t, serverConns)
	defer srv.Close()

	hub := NewHub()
	defer hub.Close()

	aliceClient := dial(t, srv.URL)
	defer aliceClient.Close()
	alice := NewConnection("alice", false, <-serverConns)
	hub.Track("alice", alice)

	sync := readEvent(t, aliceClient)
	assert.Equal(t, PresenceSync, sync.Type)
	assert.Equal(t, "alice", sync.RoomID)
	require.Len(t, sync.Presences, 1)
	assert.False(t, AnyAdminOnline(sync.Presences))

	supportClient := dial(t, srv.URL)
	defer supportClient.Close()
	support := NewConnection("support", true, <-serverConns)
	hub.Track("alice", support)

	// Alice sees the admin join.
	join := readEvent(t, aliceClient)
	assert.Equal(t, PresenceJoin, join.Type)
	require.Len(t, join.Presences, 2)
	assert.True(t, AnyAdminOnline(join.Presences))
}

func TestHub_UntrackLastSessionEmitsLeave(t *testing.T) {
	serverConns := make(chan *websocket.Conn, 4)
	srv := wsTestServer(t, serverConns)
	defer srv.Close()

	hub := NewHub()
	defer hub.Close()

	aliceClient := dial(t, srv.URL)
	defer aliceClient.Close()
	alice := NewConnection("alice", false, <-serverConns)
	hub.Track("alice", alice)
	readEvent(t, aliceClient) // sync

	supportClient := dial(t, srv.URL)
	defer supportClient.Close()
	support := NewConnection("support", true, <-serverConns)
	hub.Track("alice", support)
	readEvent(t, aliceClient) // join

	hub.Untrack("alice", support)

	leave := readEvent(t, aliceClient)
	assert.Equal(t, PresenceLeave, leave.Type)
	require.Len(t, leave.Presences, 1)
	assert.False(t, AnyAdminOnline(leave.Presences))
	assert.False(t, AnyAdminOnline(hub.Presences("alice")))
}

func TestHub_SecondSessionDoesNotDuplicatePresence(t *testing.T) {
	serverConns := make(chan *websocket.Conn, 4)
	srv := wsTestServer(t, serverConns)
	defer srv.Close()

	hub := NewHub()
	defer hub.Close()

	firstClient := dial(t, srv.URL)
	defer firstClient.Close()
	first := NewConnection("alice", false, <-serverConns)
	hub.Track("alice", first)

	secondClient := dial(t, srv.URL)
	defer secondClient.Close()
	second := NewConnection("alice", false, <-serverConns)
	hub.Track("alice", second)

	presences := hub.Presences("alice")
	require.Len(t, presences, 1)
	assert.Equal(t, "alice", presences[0].UserName)

	// Dropping one socket keeps the user present.
	hub.Untrack("alice", second)
	require.Len(t, hub.Presences("alice"), 1)

	// Dropping the last socket removes the user.
	hub.Untrack("alice", first)
	assert.Empty(t, hub.Presences("alice"))
}

func TestHub_PresenceListener(t *testing.T) {
	serverConns := make(chan *websocket.Conn, 4)
	srv := wsTestServer(t, serverConns)
	defer srv.Close()

	hub := NewHub()
	defer hub.Close()

	events := make([]PresenceEvent, 0, 4)
	hub.OnPresence(func(event PresenceEvent) {
		events = append(events, event)
	})

	client := dial(t, srv.URL)
	defer client.Close()
	conn := NewConnection("support", true, <-serverConns)
	hub.Track("alice", conn)
	hub.Untrack("alice", conn)

	require.Len(t, events, 2)
	assert.Equal(t, PresenceSync, events[0].Type)
	assert.True(t, AnyAdminOnline(events[0].Presences))
	assert.Equal(t, PresenceLeave, events[1].Type)
	assert.False(t, AnyAdminOnline(events[1].Presences))
}
