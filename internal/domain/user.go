package domain

import (
	"time"

	"gorm.io/gorm"
)

// User is an internal user record, keyed by the external identity
// provider's subject claim. Records are created on first sight.
type User struct {
	ID        string    `json:"id"`
	Subject   string    `json:"-"`
	Username  string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// UserModel is the GORM model for the users table.
type UserModel struct {
	ID        string         `gorm:"type:varchar(36);primaryKey"`
	Subject   string         `gorm:"type:varchar(255);uniqueIndex;not null"`
	Username  string         `gorm:"type:varchar(100)"`
	Email     string         `gorm:"type:varchar(255)"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// TableName specifies the table name for UserModel.
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts UserModel to domain User.
func (m *UserModel) ToDomain() *User {
	return &User{
		ID:        m.ID,
		Subject:   m.Subject,
		Username:  m.Username,
		Email:     m.Email,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// UserToModel converts domain User to UserModel.
func UserToModel(u *User) *UserModel {
	return &UserModel{
		ID:        u.ID,
		Subject:   u.Subject,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
