package auth

const (
	ErrUnauthenticatedStr = "unauthenticated"
	ErrExpiredTokenStr    = "expired-token"
	ErrInvalidTokenStr    = "invalid-token"
	ErrServerTimeoutStr   = "server-timeout"
	ErrUnknownStr         = "unknown-error"
)
