package repository

import (
	"context"
	"errors"
	"time"

	"github.com/coinhatch/coinhatch/internal/domain"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrMessageNotFound = errors.New("message not found")
)

// UserRepository persists internal user records.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetBySubject(ctx context.Context, subject string) (*domain.User, error)
}

// MessageRepository persists chat messages. All reads exclude
// soft-deleted rows and return messages newest-first.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.ChatMessageModel) error
	GetByID(ctx context.Context, id string) (*domain.ChatMessage, error)
	// ListRecent returns up to limit newest messages for a room.
	ListRecent(ctx context.Context, roomID string, limit int) ([]domain.ChatMessage, error)
	// List returns a page of messages for a room. A zero before time
	// means no upper bound.
	List(ctx context.Context, roomID string, limit, offset int, before time.Time) ([]domain.ChatMessage, error)
	// SoftDelete marks a message deleted without removing the row.
	SoftDelete(ctx context.Context, id string) error
	// RoomIDs returns the distinct room ids that have live messages.
	RoomIDs(ctx context.Context) ([]string, error)
	// TrimRoom deletes all but the keep newest live messages of a room
	// and reports how many rows it removed.
	TrimRoom(ctx context.Context, roomID string, keep int) (int64, error)
}

// PriceRepository stores observed price snapshots.
type PriceRepository interface {
	Insert(ctx context.Context, snapshots []domain.PriceSnapshotModel) error
}
