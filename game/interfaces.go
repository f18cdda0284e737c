package game

import (
	"context"
	"time"

	"github.com/AbhayTopno/PopQuiz/domain"
)

type RoomStore interface {
	CreateRoom(ctx context.Context, room domain.Room) error
	GetRoom(ctx context.Context, roomId string) (domain.Room, error)
	UpdateRoomStatus(ctx context.Context, roomId string, update domain.RoomStatusUpdate) error
	SetRoomHost(ctx context.Context, roomId, hostId string) error
	RoomExists(ctx context.Context, roomId string) (bool, error)
	DeleteRoom(ctx context.Context, roomId string) error
	ListRoomIds(ctx context.Context) ([]string, error)

	AddPlayer(ctx context.Context, roomId string, p domain.Player) error
	GetPlayer(ctx context.Context, roomId, playerId string) (domain.Player, error)
	GetAllPlayers(ctx context.Context, roomId string) ([]domain.Player, error)
	UpdatePlayer(ctx context.Context, roomId, playerId string, update domain.PlayerUpdate) (domain.Player, error)
	RemovePlayer(ctx context.Context, roomId, playerId string) error
	PlayerCount(ctx context.Context, roomId string) (int, error)

	AppendChat(ctx context.Context, roomId string, m domain.ChatMessage) error
	ChatHistory(ctx context.Context, roomId string) ([]domain.ChatMessage, error)

	IncrementScore(ctx context.Context, roomId string, key domain.ScoreKey, delta int) (int, error)
	GetScore(ctx context.Context, roomId string, key domain.ScoreKey) (int, error)
	ResetScore(ctx context.Context, roomId string, key domain.ScoreKey) error
	Leaderboard(ctx context.Context, roomId string) ([]domain.ScoreEntry, error)

	GetTeams(ctx context.Context, roomId string) (domain.TeamAssignment, error)
	CompareAndSetTeams(ctx context.Context, roomId string, next domain.TeamAssignment) (bool, error)
	GetUsernameTeams(ctx context.Context, roomId string) (domain.TeamAssignment, error)
	SetUsernameTeams(ctx context.Context, roomId string, teams domain.TeamAssignment) error

	AddCoopMember(ctx context.Context, roomId string, m domain.CoopMember) error
	RemoveCoopMember(ctx context.Context, roomId, memberId string) error
	CoopMembers(ctx context.Context, roomId string) ([]domain.CoopMember, error)
}

type QuizGetter interface {
	GetQuizById(ctx context.Context, id string) (domain.Quiz, error)
}

// Client is one connected participant as seen by a room.
type Client interface {
	Id() string
	Identity() domain.User
	Send(data []byte) error
	Close(reason string)
}

type Clock interface {
	Now() time.Time
}

// TickerCreator returns a periodic channel and the function that stops it.
type TickerCreator interface {
	Create(d time.Duration) (<-chan time.Time, func())
}
