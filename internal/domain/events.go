package domain

// WebSocket event types from client.
const (
	EventJoinRoom    = "join_room"
	EventSendMessage = "send_message"
	EventLeaveRoom   = "leave_room"
	EventPing        = "ping"
)

// WebSocket event types to client.
const (
	EventRoomJoined = "room_joined"
	EventMessage    = "message"
	EventUserJoined = "user_joined"
	EventUserLeft   = "user_left"
	EventError      = "error"
	EventPong       = "pong"
)

// Error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeForbidden     = "FORBIDDEN"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeStorage       = "STORAGE_ERROR"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// BaseEvent is the base structure for all WebSocket events.
type BaseEvent struct {
	Type string `json:"type"`
}

// Client -> Server events

type JoinRoomEvent struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
}

type SendMessageEvent struct {
	Type    string `json:"type"`
	RoomID  string `json:"roomId"`
	Content string `json:"content"`
}

type LeaveRoomEvent struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
}

// Server -> Client events

// RoomJoinedEvent is sent privately to the joining session with the
// history snapshot, oldest message first.
type RoomJoinedEvent struct {
	Type     string        `json:"type"`
	RoomID   string        `json:"roomId"`
	Messages []ChatMessage `json:"messages"`
}

// MessageEvent carries one persisted message to every session in the room.
type MessageEvent struct {
	Type string `json:"type"`
	ChatMessage
}

type UserJoinedEvent struct {
	Type     string `json:"type"`
	Username string `json:"username"`
}

type UserLeftEvent struct {
	Type     string `json:"type"`
	Username string `json:"username"`
}

type ErrorEvent struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewErrorEvent(code, message string) *ErrorEvent {
	return &ErrorEvent{
		Type:    EventError,
		Code:    code,
		Message: message,
	}
}
