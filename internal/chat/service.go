package chat

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/segmentio/ksuid"

	"github.com/coinhatch/coinhatch/internal/audit"
	"github.com/coinhatch/coinhatch/internal/config"
	"github.com/coinhatch/coinhatch/internal/domain"
	"github.com/coinhatch/coinhatch/internal/hub"
	"github.com/coinhatch/coinhatch/internal/repository"
	"github.com/coinhatch/coinhatch/pkg/log"
)

type chatService struct {
	hub      *hub.Hub
	messages repository.MessageRepository
	coins    CoinChecker
	cfg      config.ChatConfig
}

func NewChatService(h *hub.Hub, messages repository.MessageRepository, coins CoinChecker, cfg config.ChatConfig) ChatService {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 50
	}
	if cfg.MaxContentLength <= 0 {
		cfg.MaxContentLength = 500
	}
	return &chatService{
		hub:      h,
		messages: messages,
		coins:    coins,
		cfg:      cfg,
	}
}

// HandleJoinRoom moves the client into roomID. A client occupies at
// most one room, so joining while in another room leaves that room
// first (with a user_left notice), then delivers the history snapshot
// privately and announces the join to the new room. Re-joining the
// current room only refreshes the joiner's snapshot and notifies
// nobody.
func (s *chatService) HandleJoinRoom(ctx context.Context, c *hub.Client, roomID string) error {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		c.SendEvent(domain.NewErrorEvent(domain.ErrCodeValidation, "room id is required"))
		return ErrEmptyRoomID
	}

	rejoining := c.Session.CurrentRoom() == roomID
	if !rejoining {
		if c.Session.IsInRoom() {
			s.leaveCurrentRoom(c)
		}
		s.hub.JoinRoom(c, roomID)
		c.Session.JoinRoom(roomID)
	}

	// History is best effort: a storage failure is reported to the
	// joiner only and does not undo the room switch.
	snapshot, err := s.historySnapshot(ctx, roomID)
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to load history snapshot")
		c.SendEvent(domain.NewErrorEvent(domain.ErrCodeStorage, "failed to load message history"))
	} else {
		c.SendEvent(&domain.RoomJoinedEvent{
			Type:     domain.EventRoomJoined,
			RoomID:   roomID,
			Messages: snapshot,
		})
	}

	if rejoining {
		return nil
	}
	return s.hub.BroadcastToRoom(roomID, &domain.UserJoinedEvent{
		Type:     domain.EventUserJoined,
		Username: c.Session.GetUsername(),
	}, c.ID)
}

// HandleSendMessage validates, persists, then broadcasts one message to
// every client in the room, sender included. A failed persist never
// broadcasts.
func (s *chatService) HandleSendMessage(ctx context.Context, c *hub.Client, roomID, content string) error {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" || roomID != c.Session.CurrentRoom() {
		c.SendEvent(domain.NewErrorEvent(domain.ErrCodeValidation, "not joined to the named room"))
		return ErrNotInRoom
	}

	content = strings.TrimSpace(content)
	if content == "" {
		c.SendEvent(domain.NewErrorEvent(domain.ErrCodeValidation, "message content is empty"))
		return ErrEmptyContent
	}
	// Limit counts characters, not bytes, so multibyte text is not
	// penalized.
	if utf8.RuneCountInString(content) > s.cfg.MaxContentLength {
		c.SendEvent(domain.NewErrorEvent(domain.ErrCodeValidation, "message content exceeds the maximum length"))
		return ErrContentTooLong
	}

	userID := c.Session.GetUserID()
	if userID == "" {
		c.SendEvent(domain.NewErrorEvent(domain.ErrCodeNotFound, "no user record for this session"))
		return ErrNoIdentity
	}

	model := &domain.ChatMessageModel{
		ID:        ksuid.New().String(),
		RoomID:    roomID,
		UserID:    userID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.messages.Create(ctx, model); err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to persist message")
		c.SendEvent(domain.NewErrorEvent(domain.ErrCodeStorage, "failed to send message"))
		return err
	}

	msg := domain.ChatMessage{
		ID:        model.ID,
		RoomID:    roomID,
		Content:   content,
		CreatedAt: model.CreatedAt,
		User: domain.User{
			ID:       userID,
			Username: c.Session.GetUsername(),
			Email:    c.Session.GetEmail(),
		},
	}

	audit.LogWithTarget(ctx, audit.ActionMessagePosted, userID, model.ID, "message posted")

	return s.hub.BroadcastToRoom(roomID, &domain.MessageEvent{
		Type:        domain.EventMessage,
		ChatMessage: msg,
	}, "")
}

// HandleLeaveRoom removes the client from roomID if it is there.
// Leaving a room the client is not in is a no-op.
func (s *chatService) HandleLeaveRoom(ctx context.Context, c *hub.Client, roomID string) error {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" || c.Session.CurrentRoom() != roomID {
		return nil
	}
	s.leaveCurrentRoom(c)
	return nil
}

// HandleDisconnect drops the client's room membership on transport
// close, announcing the departure to the room it occupied.
func (s *chatService) HandleDisconnect(ctx context.Context, c *hub.Client) error {
	if !c.Session.IsInRoom() {
		return nil
	}
	s.leaveCurrentRoom(c)
	return nil
}

func (s *chatService) leaveCurrentRoom(c *hub.Client) {
	roomID := c.Session.CurrentRoom()
	if roomID == "" {
		return
	}

	s.hub.LeaveRoom(c, roomID)
	c.Session.LeaveRoom()

	s.hub.BroadcastToRoom(roomID, &domain.UserLeftEvent{
		Type:     domain.EventUserLeft,
		Username: c.Session.GetUsername(),
	}, c.ID)
}

// historySnapshot returns the newest messages of a room reordered
// oldest-first, capped at the configured history limit.
func (s *chatService) historySnapshot(ctx context.Context, roomID string) ([]domain.ChatMessage, error) {
	messages, err := s.messages.ListRecent(ctx, roomID, s.cfg.HistoryLimit)
	if err != nil {
		return nil, err
	}
	reverse(messages)
	return messages, nil
}

// ListMessages serves the REST history page: fetched newest-first,
// returned oldest-first, hasMore computed as a full page.
func (s *chatService) ListMessages(ctx context.Context, roomID string, limit, offset int, before time.Time) ([]domain.ChatMessage, bool, error) {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return nil, false, ErrEmptyRoomID
	}

	messages, err := s.messages.List(ctx, roomID, limit, offset, before)
	if err != nil {
		return nil, false, err
	}

	hasMore := len(messages) == limit
	reverse(messages)
	return messages, hasMore, nil
}

// PostMessage is the REST write path. Unlike the realtime path it
// checks that the coin exists, because a REST caller never joined the
// room. The created message is still broadcast to live members.
func (s *chatService) PostMessage(ctx context.Context, user *domain.User, roomID, content string) (*domain.ChatMessage, error) {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return nil, ErrEmptyRoomID
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > s.cfg.MaxContentLength {
		return nil, ErrContentTooLong
	}

	exists, err := s.coins.CoinExists(ctx, roomID)
	if err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldCoinID, roomID).Msg("coin existence check failed")
		return nil, err
	}
	if !exists {
		return nil, ErrUnknownRoom
	}

	model := &domain.ChatMessageModel{
		ID:        ksuid.New().String(),
		RoomID:    roomID,
		UserID:    user.ID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.messages.Create(ctx, model); err != nil {
		return nil, err
	}

	msg := &domain.ChatMessage{
		ID:        model.ID,
		RoomID:    roomID,
		Content:   content,
		CreatedAt: model.CreatedAt,
		User:      *user,
	}

	audit.LogWithTarget(ctx, audit.ActionMessagePosted, user.ID, model.ID, "message posted via rest")

	s.hub.BroadcastToRoom(roomID, &domain.MessageEvent{
		Type:        domain.EventMessage,
		ChatMessage: *msg,
	}, "")

	return msg, nil
}

// DeleteMessage soft-deletes a message. Only the author may delete, and
// no live event is broadcast; other sessions converge on their next
// history fetch.
func (s *chatService) DeleteMessage(ctx context.Context, userID, messageID string) error {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return err
	}

	if msg.User.ID != userID {
		return ErrNotMessageOwner
	}

	if err := s.messages.SoftDelete(ctx, messageID); err != nil {
		return err
	}

	audit.LogWithTarget(ctx, audit.ActionMessageDeleted, userID, messageID, "message deleted")
	return nil
}

// IsValidationError reports whether err belongs to the input-validation
// class of failures.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrEmptyRoomID) ||
		errors.Is(err, ErrEmptyContent) ||
		errors.Is(err, ErrContentTooLong) ||
		errors.Is(err, ErrNotInRoom)
}

func reverse(messages []domain.ChatMessage) {
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
}
