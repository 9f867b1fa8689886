package domain

import (
	"sync"
	"time"
)

// Session is the per-connection state: the resolved identity plus the
// single room the connection currently occupies. A session is in at most
// one room at a time; joining a new room implicitly leaves the previous one.
type Session struct {
	ID           string
	UserID       string
	Subject      string
	Username     string
	Email        string
	currentRoom  string
	CreatedAt    time.Time
	LastActiveAt time.Time
	mu           sync.RWMutex
}

func NewSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		CreatedAt:    now,
		LastActiveAt: now,
	}
}

// Identify records the resolved identity on the session.
func (s *Session) Identify(userID, subject, username, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UserID = userID
	s.Subject = subject
	s.Username = username
	s.Email = email
	s.LastActiveAt = time.Now()
}

func (s *Session) JoinRoom(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentRoom = roomID
	s.LastActiveAt = time.Now()
}

func (s *Session) LeaveRoom() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentRoom = ""
	s.LastActiveAt = time.Now()
}

// CurrentRoom returns the room the session is in, or "" when it has none.
func (s *Session) CurrentRoom() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentRoom
}

func (s *Session) IsInRoom() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentRoom != ""
}

func (s *Session) GetUserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.UserID
}

func (s *Session) GetUsername() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Username
}

func (s *Session) GetEmail() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Email
}

func (s *Session) GetSubject() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Subject
}

func (s *Session) UpdateActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastActiveAt = time.Now()
}
