package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor
	FieldUserID   = "user_id"
	FieldUsername = "username"
	FieldSubject  = "subject"

	// Chat
	FieldClientID  = "client_id"
	FieldRoomID    = "room_id"
	FieldMessageID = "message_id"

	// Market data
	FieldCoinID   = "coin_id"
	FieldCacheKey = "cache_key"

	// Service
	FieldService = "service"

	// Log type (for audit log)
	FieldLogType = "log_type"
	LogTypeAudit = "audit"
)
