package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/coinhatch/coinhatch/internal/chat"
	"github.com/coinhatch/coinhatch/internal/config"
	"github.com/coinhatch/coinhatch/internal/domain"
	"github.com/coinhatch/coinhatch/internal/hub"
	"github.com/coinhatch/coinhatch/internal/identity"
	"github.com/coinhatch/coinhatch/pkg/jwt"
	"github.com/coinhatch/coinhatch/pkg/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler upgrades connections and dispatches chat events.
type WSHandler struct {
	hub      *hub.Hub
	service  chat.ChatService
	verifier *jwt.Verifier
	resolver *identity.Resolver
	wsCfg    config.WebSocketConfig
}

func NewWSHandler(h *hub.Hub, svc chat.ChatService, verifier *jwt.Verifier, resolver *identity.Resolver, wsCfg config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		hub:      h,
		service:  svc,
		verifier: verifier,
		resolver: resolver,
		wsCfg:    wsCfg,
	}
}

// HandleWebSocket verifies identity, resolves the internal user, and
// only then upgrades and registers the client. A failed verification
// refuses the connection outright.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	l := log.Ctx(c.Request.Context())

	claims, err := h.verifier.Verify(wsToken(c))
	if err != nil {
		l.Warn().Err(err).Msg("websocket connection refused: invalid token")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	user, err := h.resolver.Resolve(c.Request.Context(), claims)
	if err != nil {
		l.Error().Err(err).Str(log.FieldSubject, claims.Subject).Msg("websocket connection refused: identity resolution failed")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), h.hub, conn, h.wsCfg)
	client.Session.Identify(user.ID, user.Subject, user.Username, user.Email)

	h.hub.Register(client)

	go client.WritePump()
	go func() {
		client.ReadPump(h.handleEvent)
		h.service.HandleDisconnect(context.Background(), client)
	}()
}

// wsToken reads the bearer token from the Authorization header or,
// since browser WebSocket clients cannot set headers, the token query
// parameter.
func wsToken(c *gin.Context) string {
	if header := c.GetHeader(AuthHeaderKey); strings.HasPrefix(header, BearerPrefix) {
		return strings.TrimPrefix(header, BearerPrefix)
	}
	return c.Query("token")
}

func (h *WSHandler) handleEvent(client *hub.Client, message []byte) {
	var base domain.BaseEvent
	if err := json.Unmarshal(message, &base); err != nil {
		client.SendEvent(domain.NewErrorEvent(domain.ErrCodeValidation, "invalid event format"))
		return
	}

	ctx := context.Background()
	l := log.L()

	switch base.Type {
	case domain.EventJoinRoom:
		var event domain.JoinRoomEvent
		if err := json.Unmarshal(message, &event); err != nil {
			client.SendEvent(domain.NewErrorEvent(domain.ErrCodeValidation, "invalid join_room event"))
			return
		}
		if err := h.service.HandleJoinRoom(ctx, client, event.RoomID); err != nil {
			l.Warn().Err(err).Str(log.FieldClientID, client.ID).Msg("join room failed")
		}

	case domain.EventSendMessage:
		var event domain.SendMessageEvent
		if err := json.Unmarshal(message, &event); err != nil {
			client.SendEvent(domain.NewErrorEvent(domain.ErrCodeValidation, "invalid send_message event"))
			return
		}
		if err := h.service.HandleSendMessage(ctx, client, event.RoomID, event.Content); err != nil {
			l.Warn().Err(err).Str(log.FieldClientID, client.ID).Msg("send message failed")
		}

	case domain.EventLeaveRoom:
		var event domain.LeaveRoomEvent
		if err := json.Unmarshal(message, &event); err != nil {
			client.SendEvent(domain.NewErrorEvent(domain.ErrCodeValidation, "invalid leave_room event"))
			return
		}
		if err := h.service.HandleLeaveRoom(ctx, client, event.RoomID); err != nil {
			l.Warn().Err(err).Str(log.FieldClientID, client.ID).Msg("leave room failed")
		}

	case domain.EventPing:
		client.SendEvent(map[string]string{"type": domain.EventPong})

	default:
		client.SendEvent(domain.NewErrorEvent(domain.ErrCodeValidation, "unknown event type"))
	}
}
