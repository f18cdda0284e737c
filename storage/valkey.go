package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AbhayTopno/PopQuiz/domain"
	"github.com/valkey-io/valkey-go"
)

const (
	defaultRoomTTL   = 24 * time.Hour
	defaultCoopTTL   = 2 * time.Hour
	defaultChatLimit = 100
	defaultTimeout   = 2 * time.Second
)

type ValkeyConfig struct {
	Addr      string
	Username  string
	Password  string
	DB        int
	RoomTTL   time.Duration
	CoopTTL   time.Duration
	ChatLimit int
	// ConnectTimeout bounds the initial PING.
	ConnectTimeout time.Duration
	// DisableCache turns off client side caching, needed for servers
	// without CLIENT TRACKING support.
	DisableCache bool
}

// ValkeyStore keeps all ephemeral room state. It is safe for concurrent use.
type ValkeyStore struct {
	client    valkey.Client
	roomTTL   time.Duration
	coopTTL   time.Duration
	chatLimit int64
}

func NewValkeyStore(ctx context.Context, cfg ValkeyConfig) (*ValkeyStore, error) {
	opt := valkey.ClientOption{
		InitAddress:  []string{cfg.Addr},
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: cfg.DisableCache,
	}

	client, err := valkey.NewClient(opt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.UnexpectedStoreError, err)
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Do(pingCtx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %w", domain.UnexpectedStoreError, err)
	}

	s := &ValkeyStore{
		client:    client,
		roomTTL:   cfg.RoomTTL,
		coopTTL:   cfg.CoopTTL,
		chatLimit: int64(cfg.ChatLimit),
	}
	if s.roomTTL <= 0 {
		s.roomTTL = defaultRoomTTL
	}
	if s.coopTTL <= 0 {
		s.coopTTL = defaultCoopTTL
	}
	if s.chatLimit <= 0 {
		s.chatLimit = defaultChatLimit
	}
	return s, nil
}

func (s *ValkeyStore) Close() {
	s.client.Close()
}

func roomKey(roomId string) string            { return "room:" + roomId }
func playersKey(roomId string) string         { return "players:" + roomId }
func chatKey(roomId string) string            { return "chat:" + roomId }
func leaderboardKey(roomId string) string     { return "leaderboard:" + roomId }
func teamsKey(roomId string) string           { return "teams:" + roomId }
func teamsByUsernameKey(roomId string) string { return "teamsByUsername:" + roomId }
func coopScoreKey(roomId string) string       { return "coop:" + roomId + ":score" }
func coopMembersKey(roomId string) string     { return "coop:" + roomId + ":members" }

func teamScoreKey(roomId string, team domain.TeamId) string {
	return "teamscore:" + roomId + ":" + string(team)
}

func allRoomKeys(roomId string) []string {
	return []string{
		roomKey(roomId),
		playersKey(roomId),
		chatKey(roomId),
		leaderboardKey(roomId),
		teamsKey(roomId),
		teamsByUsernameKey(roomId),
		teamScoreKey(roomId, domain.TeamA),
		teamScoreKey(roomId, domain.TeamB),
		coopScoreKey(roomId),
		coopMembersKey(roomId),
	}
}

func (s *ValkeyStore) expire(key string, ttl time.Duration) valkey.Completed {
	return s.client.B().Expire().Key(key).Seconds(int64(ttl / time.Second)).Build()
}

// exec runs cmds in one round trip, then refreshes the expiry of the room
// key and of every extra key.
func (s *ValkeyStore) exec(ctx context.Context, roomId string, cmds valkey.Commands, touch ...string) ([]valkey.ValkeyResult, error) {
	cmds = append(cmds, s.expire(roomKey(roomId), s.roomTTL))
	for _, k := range touch {
		cmds = append(cmds, s.expire(k, s.roomTTL))
	}

	results := s.client.DoMulti(ctx, cmds...)
	for _, r := range results {
		if err := r.Error(); err != nil && !valkey.IsValkeyNil(err) {
			return nil, wrapStoreErr(err)
		}
	}
	return results, nil
}

func wrapStoreErr(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.UnexpectedStoreError, err)
}
