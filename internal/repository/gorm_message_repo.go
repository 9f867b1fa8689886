package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/coinhatch/coinhatch/internal/domain"
)

// GormMessageRepository implements MessageRepository using GORM.
// Soft deletion relies on gorm.DeletedAt, so deleted rows drop out of
// every query automatically.
type GormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository creates a new GORM-based message repository.
func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

// Create appends a message row.
func (r *GormMessageRepository) Create(ctx context.Context, msg *domain.ChatMessageModel) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// GetByID retrieves a live message with its author.
func (r *GormMessageRepository) GetByID(ctx context.Context, id string) (*domain.ChatMessage, error) {
	var model domain.ChatMessageModel
	result := r.db.WithContext(ctx).Preload("User").First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// ListRecent returns up to limit newest messages for a room, newest-first.
func (r *GormMessageRepository) ListRecent(ctx context.Context, roomID string, limit int) ([]domain.ChatMessage, error) {
	return r.list(ctx, roomID, limit, 0, time.Time{})
}

// List returns a page of messages for a room, newest-first.
func (r *GormMessageRepository) List(ctx context.Context, roomID string, limit, offset int, before time.Time) ([]domain.ChatMessage, error) {
	return r.list(ctx, roomID, limit, offset, before)
}

func (r *GormMessageRepository) list(ctx context.Context, roomID string, limit, offset int, before time.Time) ([]domain.ChatMessage, error) {
	q := r.db.WithContext(ctx).
		Preload("User").
		Where("room_id = ?", roomID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset)

	if !before.IsZero() {
		q = q.Where("created_at < ?", before)
	}

	var models []domain.ChatMessageModel
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}

	messages := make([]domain.ChatMessage, 0, len(models))
	for i := range models {
		messages = append(messages, *models[i].ToDomain())
	}
	return messages, nil
}

// SoftDelete marks a message deleted.
func (r *GormMessageRepository) SoftDelete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&domain.ChatMessageModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// RoomIDs returns the distinct room ids that have live messages.
func (r *GormMessageRepository) RoomIDs(ctx context.Context) ([]string, error) {
	var roomIDs []string
	err := r.db.WithContext(ctx).
		Model(&domain.ChatMessageModel{}).
		Distinct("room_id").
		Pluck("room_id", &roomIDs).Error
	if err != nil {
		return nil, err
	}
	return roomIDs, nil
}

// TrimRoom deletes all but the keep newest live messages of a room.
// Ranking is by creation time descending with the KSUID as a stable
// tie-breaker.
func (r *GormMessageRepository) TrimRoom(ctx context.Context, roomID string, keep int) (int64, error) {
	var staleIDs []string
	err := r.db.WithContext(ctx).
		Model(&domain.ChatMessageModel{}).
		Where("room_id = ?", roomID).
		Order("created_at DESC, id DESC").
		Offset(keep).
		Limit(-1).
		Pluck("id", &staleIDs).Error
	if err != nil {
		return 0, err
	}
	if len(staleIDs) == 0 {
		return 0, nil
	}

	result := r.db.WithContext(ctx).Delete(&domain.ChatMessageModel{}, "id IN ?", staleIDs)
	return result.RowsAffected, result.Error
}
