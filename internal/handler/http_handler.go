package handler

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/coinhatch/coinhatch/internal/chat"
	"github.com/coinhatch/coinhatch/internal/domain"
	"github.com/coinhatch/coinhatch/internal/identity"
	"github.com/coinhatch/coinhatch/internal/market"
	"github.com/coinhatch/coinhatch/internal/repository"
	"github.com/coinhatch/coinhatch/pkg/log"
	"github.com/coinhatch/coinhatch/pkg/response"
)

const (
	defaultLimit = 50
	maxLimit     = 100
)

// HTTPHandler serves the REST surface: message history and the market
// data pass-through.
type HTTPHandler struct {
	chatService   chat.ChatService
	marketService market.MarketService
	resolver      *identity.Resolver
	auth          *AuthMiddleware
}

func NewHTTPHandler(chatService chat.ChatService, marketService market.MarketService, resolver *identity.Resolver, auth *AuthMiddleware) *HTTPHandler {
	return &HTTPHandler{
		chatService:   chatService,
		marketService: marketService,
		resolver:      resolver,
		auth:          auth,
	}
}

// RegisterRoutes registers all routes.
func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		api.GET("/chat-messages", h.ListMessages)
		api.POST("/chat-messages", h.auth.RequireAuth(), h.PostMessage)
		api.DELETE("/chat-messages/:id", h.auth.RequireAuth(), h.DeleteMessage)

		marketGroup := api.Group("/market")
		{
			marketGroup.GET("/trending", h.Trending)
			marketGroup.GET("/coins", h.Markets)
			marketGroup.GET("/coins/:id", h.CoinDetail)
			marketGroup.GET("/search", h.SearchCoins)
		}
	}

	r.GET("/health", h.HealthCheck)
}

type listMessagesResponse struct {
	Messages interface{} `json:"messages"`
	HasMore  bool        `json:"hasMore"`
}

// ListMessages returns a history page for a room, oldest-first.
func (h *HTTPHandler) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	roomID := c.Query("roomId")
	if strings.TrimSpace(roomID) == "" {
		response.BadRequest(c, "roomId is required")
		return
	}

	limit, ok := parsePositiveInt(c, "limit", defaultLimit)
	if !ok {
		return
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	offset, ok := parsePositiveInt(c, "offset", 0)
	if !ok {
		return
	}

	var before time.Time
	if beforeStr := c.Query("before"); beforeStr != "" {
		parsed, err := time.Parse(time.RFC3339, beforeStr)
		if err != nil {
			response.BadRequest(c, "before must be an RFC 3339 timestamp")
			return
		}
		before = parsed
	}

	messages, hasMore, err := h.chatService.ListMessages(ctx, roomID, limit, offset, before)
	if err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to list messages")
		response.InternalError(c, "failed to load messages")
		return
	}

	response.Success(c, listMessagesResponse{Messages: messages, HasMore: hasMore})
}

type postMessageRequest struct {
	RoomID  string `json:"roomId" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// PostMessage creates one message on behalf of the authenticated caller.
func (h *HTTPHandler) PostMessage(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	claims, ok := GetClaims(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.resolver.Resolve(ctx, claims)
	if err != nil {
		l.Error().Err(err).Str(log.FieldSubject, claims.Subject).Msg("identity resolution failed")
		response.InternalError(c, "failed to resolve user")
		return
	}
	c.Set(log.FieldUserID, user.ID)

	msg, err := h.chatService.PostMessage(ctx, user, req.RoomID, req.Content)
	if err != nil {
		switch {
		case chat.IsValidationError(err):
			response.BadRequest(c, err.Error())
		case errors.Is(err, chat.ErrUnknownRoom):
			response.NotFound(c, "unknown coin")
		case errors.Is(err, market.ErrUpstreamTimeout):
			response.GatewayTimeout(c, "market data provider timed out")
		case errors.Is(err, market.ErrUpstream):
			response.BadGateway(c, "market data provider failed")
		default:
			l.Error().Err(err).Str(log.FieldRoomID, req.RoomID).Msg("failed to post message")
			response.InternalError(c, "failed to post message")
		}
		return
	}

	response.Created(c, msg)
}

// DeleteMessage soft-deletes a message owned by the caller.
func (h *HTTPHandler) DeleteMessage(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	claims, ok := GetClaims(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	user, err := h.resolver.Resolve(ctx, claims)
	if err != nil {
		l.Error().Err(err).Str(log.FieldSubject, claims.Subject).Msg("identity resolution failed")
		response.InternalError(c, "failed to resolve user")
		return
	}
	c.Set(log.FieldUserID, user.ID)

	messageID := c.Param("id")
	if err := h.chatService.DeleteMessage(ctx, user.ID, messageID); err != nil {
		switch {
		case errors.Is(err, repository.ErrMessageNotFound):
			response.NotFound(c, "message not found")
		case errors.Is(err, chat.ErrNotMessageOwner):
			response.Forbidden(c, "only the author may delete a message")
		default:
			l.Error().Err(err).Str(log.FieldMessageID, messageID).Msg("failed to delete message")
			response.InternalError(c, "failed to delete message")
		}
		return
	}

	response.Success(c, gin.H{"deleted": true})
}

// Trending serves the cached trending feed.
func (h *HTTPHandler) Trending(c *gin.Context) {
	h.serveMarket(c, func() (*domain.MarketEnvelope, error) {
		return h.marketService.Trending(c.Request.Context())
	})
}

// Markets serves the cached markets listing with pass-through filters.
func (h *HTTPHandler) Markets(c *gin.Context) {
	var ids []string
	if idsParam := strings.TrimSpace(c.Query("ids")); idsParam != "" {
		ids = strings.Split(idsParam, ",")
	}

	page, ok := parsePositiveInt(c, "page", 1)
	if !ok {
		return
	}
	perPage, ok := parsePositiveInt(c, "perPage", 10)
	if !ok {
		return
	}
	if perPage > maxLimit {
		perPage = maxLimit
	}

	h.serveMarket(c, func() (*domain.MarketEnvelope, error) {
		return h.marketService.Markets(c.Request.Context(), ids, c.Query("vsCurrency"), page, perPage)
	})
}

// CoinDetail serves one coin's cached detail payload.
func (h *HTTPHandler) CoinDetail(c *gin.Context) {
	h.serveMarket(c, func() (*domain.MarketEnvelope, error) {
		return h.marketService.Detail(c.Request.Context(), c.Param("id"), c.Query("vsCurrency"))
	})
}

// SearchCoins serves cached coin search results.
func (h *HTTPHandler) SearchCoins(c *gin.Context) {
	query := strings.TrimSpace(c.Query("query"))
	if query == "" {
		response.BadRequest(c, "query is required")
		return
	}

	h.serveMarket(c, func() (*domain.MarketEnvelope, error) {
		return h.marketService.Search(c.Request.Context(), query)
	})
}

func (h *HTTPHandler) serveMarket(c *gin.Context, fetch func() (*domain.MarketEnvelope, error)) {
	l := log.Ctx(c.Request.Context())

	envelope, err := fetch()
	if err != nil {
		switch {
		case errors.Is(err, market.ErrCoinNotFound):
			response.NotFound(c, "coin not found")
		case errors.Is(err, market.ErrUpstreamTimeout):
			response.GatewayTimeout(c, "market data provider timed out")
		case errors.Is(err, market.ErrUpstream):
			response.BadGateway(c, "market data provider failed")
		default:
			l.Error().Err(err).Msg("market data fetch failed")
			response.InternalError(c, "failed to load market data")
		}
		return
	}

	response.Success(c, envelope)
}

// HealthCheck reports liveness.
func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}

func parsePositiveInt(c *gin.Context, name string, defaultVal int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return defaultVal, true
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 0 {
		response.BadRequest(c, name+" must be a non-negative integer")
		return 0, false
	}
	if parsed == 0 {
		return defaultVal, true
	}
	return parsed, true
}
