package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"storefront/internal/middleware"
	"storefront/internal/model"
	"storefront/internal/realtime"
	"storefront/internal/service/chat"
	"storefront/pkg/log"
	"storefront/pkg/utils"
)

const (
	pongWait       = 60 * time.Second
	maxMessageSize = 64 * 1024
)

// ChatHandler support chat handler
type ChatHandler struct {
	chatService chat.ChatService
	upgrader    websocket.Upgrader
}

// NewChatHandler creates a chat handler
func NewChatHandler(chatService chat.ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The browser client is served from another origin in
			// development; auth happens via the JWT, not the origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// History returns the room's transcript, seeding a welcome message for new
// rooms
func (h *ChatHandler) History(c *gin.Context) {
	roomID := c.Param("room_id")
	if !h.canAccessRoom(c, roomID) {
		utils.ErrorResponse(c, http.StatusForbidden, "access denied")
		return
	}

	messages, err := h.chatService.History(c.Request.Context(), roomID)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "failed to load history")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"messages":     messages,
		"admin_online": h.chatService.AdminOnline(roomID),
	})
}

// Send posts a message to the room over plain HTTP. Clients with a live
// websocket go through Connect instead.
func (h *ChatHandler) Send(c *gin.Context) {
	roomID := c.Param("room_id")
	if !h.canAccessRoom(c, roomID) {
		utils.ErrorResponse(c, http.StatusForbidden, "access denied")
		return
	}

	var req struct {
		// ID lets a retrying client keep the send idempotent.
		ID      string `json:"id" binding:"omitempty,uuid"`
		Content string `json:"content" binding:"required,max=4000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid parameters: "+err.Error())
		return
	}

	userName, _ := middleware.GetUserName(c)
	msg := &model.ChatMessage{
		ID:         req.ID,
		RoomID:     roomID,
		SenderName: userName,
		Content:    req.Content,
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	if err := h.chatService.Send(c.Request.Context(), roomID, msg); err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "failed to send message")
		return
	}
	utils.SuccessResponse(c, msg)
}

// MarkRead flips the unread flags for the caller's side of the room
func (h *ChatHandler) MarkRead(c *gin.Context) {
	roomID := c.Param("room_id")
	if !h.canAccessRoom(c, roomID) {
		utils.ErrorResponse(c, http.StatusForbidden, "access denied")
		return
	}

	if err := h.chatService.MarkRead(c.Request.Context(), roomID, middleware.IsAdmin(c)); err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "failed to mark messages read")
		return
	}
	utils.SuccessResponse(c, nil)
}

// Connect upgrades the request to a websocket and joins the room
func (h *ChatHandler) Connect(c *gin.Context) {
	roomID := c.Param("room_id")
	if !h.canAccessRoom(c, roomID) {
		utils.ErrorResponse(c, http.StatusForbidden, "access denied")
		return
	}

	userName, _ := middleware.GetUserName(c)
	isAdmin := middleware.IsAdmin(c)

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warnf("Websocket upgrade failed: %v", err)
		return
	}

	conn := realtime.NewConnection(userName, isAdmin, ws)

	session, err := h.chatService.Join(c.Request.Context(), roomID, conn)
	if err != nil {
		conn.Close(websocket.CloseInternalServerErr, "join failed")
		return
	}
	defer h.chatService.Leave(session)

	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warnf("Websocket read error in room %s: %v", roomID, err)
			}
			return
		}

		var msg model.ChatMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			continue
		}
		// The sender name comes from the authenticated session, never
		// from the frame.
		msg.SenderName = userName

		if err := h.chatService.Ingest(c.Request.Context(), session, &msg); err != nil {
			log.WithFields(map[string]interface{}{
				"room_id": roomID,
				"error":   err.Error(),
			}).Error("Failed to ingest chat message")
		}
	}
}

// canAccessRoom allows admins into any room and customers only into their own
// room (rooms are keyed by the customer's user name).
func (h *ChatHandler) canAccessRoom(c *gin.Context, roomID string) bool {
	if roomID == "" {
		return false
	}
	if middleware.IsAdmin(c) {
		return true
	}
	userName, ok := middleware.GetUserName(c)
	return ok && userName == roomID
}
