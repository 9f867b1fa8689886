package chat

import (
	"context"
	"errors"
	"time"

	"github.com/coinhatch/coinhatch/internal/domain"
	"github.com/coinhatch/coinhatch/internal/hub"
)

var (
	ErrEmptyRoomID     = errors.New("room id is required")
	ErrEmptyContent    = errors.New("message content is empty")
	ErrContentTooLong  = errors.New("message content exceeds the maximum length")
	ErrNotInRoom       = errors.New("session is not in the named room")
	ErrUnknownRoom     = errors.New("unknown coin room")
	ErrNoIdentity      = errors.New("session has no resolved identity")
	ErrNotMessageOwner = errors.New("only the author may delete a message")
)

// ChatService implements the room protocol for both the realtime and
// REST entry points.
type ChatService interface {
	HandleJoinRoom(ctx context.Context, client *hub.Client, roomID string) error
	HandleSendMessage(ctx context.Context, client *hub.Client, roomID, content string) error
	HandleLeaveRoom(ctx context.Context, client *hub.Client, roomID string) error
	HandleDisconnect(ctx context.Context, client *hub.Client) error

	// ListMessages returns a history page oldest-first along with a
	// hasMore flag computed from the requested limit.
	ListMessages(ctx context.Context, roomID string, limit, offset int, before time.Time) ([]domain.ChatMessage, bool, error)
	// PostMessage persists a message on behalf of an authenticated REST
	// caller and broadcasts it to the live room.
	PostMessage(ctx context.Context, user *domain.User, roomID, content string) (*domain.ChatMessage, error)
	// DeleteMessage soft-deletes a message after an author check.
	DeleteMessage(ctx context.Context, userID, messageID string) error
}

// CoinChecker reports whether a coin id names a real coin. Satisfied by
// the market gateway.
type CoinChecker interface {
	CoinExists(ctx context.Context, coinID string) (bool, error)
}
