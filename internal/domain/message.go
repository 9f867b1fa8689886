package domain

import (
	"time"

	"gorm.io/gorm"
)

// ChatMessage is a persisted chat message joined with its author.
type ChatMessage struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"roomId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	User      User      `json:"user"`
}

// ChatMessageModel is the GORM model for the chat_messages table.
// Message IDs are KSUIDs, so lexicographic order follows creation order.
type ChatMessageModel struct {
	ID        string         `gorm:"type:varchar(27);primaryKey"`
	RoomID    string         `gorm:"type:varchar(100);index:idx_room_created;not null"`
	UserID    string         `gorm:"type:varchar(36);index;not null"`
	Content   string         `gorm:"type:varchar(500);not null"`
	CreatedAt time.Time      `gorm:"index:idx_room_created;autoCreateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index"`

	User UserModel `gorm:"foreignKey:UserID"`
}

// TableName specifies the table name for ChatMessageModel.
func (ChatMessageModel) TableName() string {
	return "chat_messages"
}

// ToDomain converts ChatMessageModel to domain ChatMessage.
func (m *ChatMessageModel) ToDomain() *ChatMessage {
	return &ChatMessage{
		ID:        m.ID,
		RoomID:    m.RoomID,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
		User: User{
			ID:       m.User.ID,
			Username: m.User.Username,
			Email:    m.User.Email,
		},
	}
}
