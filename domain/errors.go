package domain

import "errors"

var (
	ErrRoomNotFound          = errors.New("room-not-found")
	ErrPlayerNotFound        = errors.New("player-not-found")
	ErrUnknownMode           = errors.New("unknown-mode")
	ErrSchemaVersion         = errors.New("unsupported-schema-version")
	ErrTeamConflict          = errors.New("team-assignment-conflict")
	ErrInvalidTeamAssignment = errors.New("invalid-team-assignment")
	UnexpectedStoreError     = errors.New("unexpected-store-error")
)

var (
	ErrUserNotFound         = errors.New("user-not-found")
	ErrQuizNotFound         = errors.New("quiz-not-found")
	UnexpectedDatabaseError = errors.New("unexpected-database-error")
)

var (
	ErrExpiredToken                  = errors.New("expired-token")
	ErrInvalidTokenSignature         = errors.New("invalid-token-signature")
	ErrInvalidSigningAlg             = errors.New("invalid-signing-alg")
	ErrCorruptedToken                = errors.New("corrupted-token")
	UnexpectedTokenGenerationError   = errors.New("unexpected-token-generation-error")
	UnexpectedTokenVerificationError = errors.New("unexpected-token-verification-error")
)
