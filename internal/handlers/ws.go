package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/davrbek/coursehub-backend/internal/platform/apierr"
	"github.com/davrbek/coursehub-backend/internal/platform/logger"
	"github.com/davrbek/coursehub-backend/internal/repos"
	"github.com/davrbek/coursehub-backend/internal/services"
	"github.com/davrbek/coursehub-backend/internal/types"
	"github.com/davrbek/coursehub-backend/internal/ws"
)

// WSHandler upgrades HTTP requests onto the three push channels: lesson
// assignment events, lesson thread-list updates and single private chats.
// Auth and topic checks happen after the upgrade so the client receives an
// application close code instead of a bare handshake failure.
type WSHandler struct {
	log        *logger.Logger
	upgrader   websocket.Upgrader
	auth       services.AuthService
	access     services.AccessService
	chats      services.ChatService
	lessonRepo repos.LessonRepo

	AssignmentHub *ws.Hub
	ThreadHub     *ws.Hub
	ChatHub       *ws.Hub
}

func NewWSHandler(
	baseLog *logger.Logger,
	auth services.AuthService,
	access services.AccessService,
	chats services.ChatService,
	lessonRepo repos.LessonRepo,
	assignmentHub, threadHub, chatHub *ws.Hub,
) *WSHandler {
	return &WSHandler{
		log: baseLog.With("handler", "WSHandler"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser clients carry the token in the query string, so
			// origin enforcement stays with the CORS layer.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		auth:          auth,
		access:        access,
		chats:         chats,
		lessonRepo:    lessonRepo,
		AssignmentHub: assignmentHub,
		ThreadHub:     threadHub,
		ChatHub:       chatHub,
	}
}

// wsToken prefers the ?token= query parameter, which is the only channel
// browser WebSocket clients have, and falls back to a bearer header.
func wsToken(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[len("bearer "):])
	}
	return ""
}

func (h *WSHandler) upgrade(c *gin.Context) (*ws.Client, bool) {
	sock, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Debug("Upgrade failed", "error", err)
		return nil, false
	}
	return ws.NewClient(sock, h.log), true
}

// viewerFromRequest resolves the optional token. Returns (nil, true) for an
// anonymous connection and (nil, false) for a present-but-invalid token.
func (h *WSHandler) viewerFromRequest(c *gin.Context) (*types.User, bool) {
	token := wsToken(c)
	if token == "" {
		return nil, true
	}
	viewer, err := h.auth.VerifyToken(c.Request.Context(), token)
	if err != nil {
		return nil, false
	}
	return viewer, true
}

func (h *WSHandler) run(client *ws.Client, hub *ws.Hub, topic int64) {
	hub.Connect(topic, client)
	defer hub.Disconnect(topic, client)

	if err := client.Push(ws.Event{Event: ws.EventConnected, Data: map[string]any{"topic": topic}}); err != nil {
		_ = client.Close()
		return
	}
	client.ReadLoop()
}

func wsTopicID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// LessonAssignments serves /ws/lessons/:id/assignments. Anonymous viewers
// may subscribe to free lessons; locked lessons reject with 4403.
func (h *WSHandler) LessonAssignments(c *gin.Context) {
	h.lessonTopic(c, h.AssignmentHub, false)
}

// LessonThreads serves /ws/lessons/:id/chats, the thread-list channel.
// Authentication is mandatory: thread lists are always viewer specific.
func (h *WSHandler) LessonThreads(c *gin.Context) {
	h.lessonTopic(c, h.ThreadHub, true)
}

func (h *WSHandler) lessonTopic(c *gin.Context, hub *ws.Hub, requireAuth bool) {
	lessonID, ok := wsTopicID(c, "id")
	client, upgraded := h.upgrade(c)
	if !upgraded {
		return
	}
	if !ok {
		client.CloseWithStatus(ws.CloseNotFound, "lesson not found")
		return
	}

	viewer, tokenOK := h.viewerFromRequest(c)
	if !tokenOK || (requireAuth && viewer == nil) {
		client.CloseWithStatus(ws.CloseUnauthenticated, "authentication required")
		return
	}

	lesson, err := h.lessonRepo.GetByID(c.Request.Context(), nil, lessonID)
	if err != nil {
		client.CloseWithStatus(websocket.CloseInternalServerErr, "internal error")
		return
	}
	if lesson == nil {
		client.CloseWithStatus(ws.CloseNotFound, "lesson not found")
		return
	}
	locked, err := h.access.LessonLocked(c.Request.Context(), viewer, lesson)
	if err != nil {
		client.CloseWithStatus(websocket.CloseInternalServerErr, "internal error")
		return
	}
	if locked {
		client.CloseWithStatus(ws.CloseForbidden, "lesson is locked")
		return
	}

	h.run(client, hub, lessonID)
}

// PrivateChat serves /ws/chats/:id. Only the two participants (and admins)
// may subscribe.
func (h *WSHandler) PrivateChat(c *gin.Context) {
	chatID, ok := wsTopicID(c, "id")
	client, upgraded := h.upgrade(c)
	if !upgraded {
		return
	}
	if !ok {
		client.CloseWithStatus(ws.CloseNotFound, "chat not found")
		return
	}

	viewer, tokenOK := h.viewerFromRequest(c)
	if !tokenOK || viewer == nil {
		client.CloseWithStatus(ws.CloseUnauthenticated, "authentication required")
		return
	}

	allowed, err := h.chats.CanSubscribe(c.Request.Context(), viewer, chatID)
	if err != nil {
		if ae := apierr.From(err); ae != nil && ae.Code == apierr.CodeNotFound {
			client.CloseWithStatus(ws.CloseNotFound, "chat not found")
			return
		}
		client.CloseWithStatus(websocket.CloseInternalServerErr, "internal error")
		return
	}
	if !allowed {
		client.CloseWithStatus(ws.CloseForbidden, "not a participant")
		return
	}

	h.run(client, h.ChatHub, chatID)
}
