package storage

import (
	"context"
	"errors"
	"slices"

	"github.com/AbhayTopno/PopQuiz/domain"
	"github.com/valkey-io/valkey-go"
)

// AddPlayer upserts p. An existing record keeps its progress, score,
// answers and join time; only the profile fields are refreshed.
func (s *ValkeyStore) AddPlayer(ctx context.Context, roomId string, p domain.Player) error {
	existing, err := s.GetPlayer(ctx, roomId, p.Id)
	switch {
	case err == nil:
		existing.Username = p.Username
		existing.Avatar = p.Avatar
		p = existing
	case !errors.Is(err, domain.ErrPlayerNotFound):
		return err
	}

	if p.Answers == nil {
		p.Answers = []domain.Answer{}
	}
	raw, err := encodePlayer(p)
	if err != nil {
		return err
	}

	cmds := valkey.Commands{
		s.client.B().Hset().Key(playersKey(roomId)).FieldValue().FieldValue(p.Id, raw).Build(),
		s.client.B().Zadd().Key(leaderboardKey(roomId)).Nx().ScoreMember().ScoreMember(float64(p.Score), p.Id).Build(),
	}
	_, err = s.exec(ctx, roomId, cmds, playersKey(roomId), leaderboardKey(roomId))
	return err
}

func (s *ValkeyStore) GetPlayer(ctx context.Context, roomId, playerId string) (domain.Player, error) {
	raw, err := s.client.Do(ctx, s.client.B().Hget().Key(playersKey(roomId)).Field(playerId).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return domain.Player{}, domain.ErrPlayerNotFound
		}
		return domain.Player{}, wrapStoreErr(err)
	}
	return decodePlayer(raw)
}

// GetAllPlayers returns the players of a room ordered by join time.
func (s *ValkeyStore) GetAllPlayers(ctx context.Context, roomId string) ([]domain.Player, error) {
	fields, err := s.client.Do(ctx, s.client.B().Hgetall().Key(playersKey(roomId)).Build()).AsStrMap()
	if err != nil {
		return nil, wrapStoreErr(err)
	}

	players := make([]domain.Player, 0, len(fields))
	for _, raw := range fields {
		p, err := decodePlayer(raw)
		if err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	slices.SortFunc(players, func(a, b domain.Player) int {
		if c := a.JoinedAt.Compare(b.JoinedAt); c != 0 {
			return c
		}
		if a.Id < b.Id {
			return -1
		}
		if a.Id > b.Id {
			return 1
		}
		return 0
	})
	return players, nil
}

func (s *ValkeyStore) UpdatePlayer(ctx context.Context, roomId, playerId string, update domain.PlayerUpdate) (domain.Player, error) {
	p, err := s.GetPlayer(ctx, roomId, playerId)
	if err != nil {
		return domain.Player{}, err
	}
	p = update.Apply(p)

	raw, err := encodePlayer(p)
	if err != nil {
		return domain.Player{}, err
	}
	cmd := s.client.B().Hset().Key(playersKey(roomId)).FieldValue().FieldValue(p.Id, raw).Build()
	if _, err := s.exec(ctx, roomId, valkey.Commands{cmd}, playersKey(roomId)); err != nil {
		return domain.Player{}, err
	}
	return p, nil
}

func (s *ValkeyStore) RemovePlayer(ctx context.Context, roomId, playerId string) error {
	cmds := valkey.Commands{
		s.client.B().Hdel().Key(playersKey(roomId)).Field(playerId).Build(),
		s.client.B().Zrem().Key(leaderboardKey(roomId)).Member(playerId).Build(),
	}
	_, err := s.exec(ctx, roomId, cmds)
	return err
}

func (s *ValkeyStore) PlayerCount(ctx context.Context, roomId string) (int, error) {
	n, err := s.client.Do(ctx, s.client.B().Hlen().Key(playersKey(roomId)).Build()).AsInt64()
	if err != nil {
		return 0, wrapStoreErr(err)
	}
	return int(n), nil
}
