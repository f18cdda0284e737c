package storage

import (
	"context"
	"math"
	"time"

	"github.com/AbhayTopno/PopQuiz/domain"
	"github.com/valkey-io/valkey-go"
)

// IncrementScore atomically adds delta to a ledger entry and returns the new total.
// Player entries live in the room leaderboard, team and coop entries in counters.
func (s *ValkeyStore) IncrementScore(ctx context.Context, roomId string, key domain.ScoreKey, delta int) (int, error) {
	switch key.Kind {
	case domain.ScorePlayer:
		cmd := s.client.B().Zincrby().Key(leaderboardKey(roomId)).Increment(float64(delta)).Member(key.Id).Build()
		res, err := s.exec(ctx, roomId, valkey.Commands{cmd}, leaderboardKey(roomId))
		if err != nil {
			return 0, err
		}
		total, err := res[0].AsFloat64()
		if err != nil {
			return 0, wrapStoreErr(err)
		}
		return int(math.Round(total)), nil

	case domain.ScoreTeam, domain.ScoreCoop:
		k, ttl := s.counterKey(roomId, key)
		cmds := valkey.Commands{
			s.client.B().Incrby().Key(k).Increment(int64(delta)).Build(),
			s.expire(k, ttl),
		}
		res, err := s.exec(ctx, roomId, cmds)
		if err != nil {
			return 0, err
		}
		total, err := res[0].AsInt64()
		if err != nil {
			return 0, wrapStoreErr(err)
		}
		return int(total), nil
	}
	return 0, domain.UnexpectedStoreError
}

func (s *ValkeyStore) GetScore(ctx context.Context, roomId string, key domain.ScoreKey) (int, error) {
	if key.Kind == domain.ScorePlayer {
		score, err := s.client.Do(ctx, s.client.B().Zscore().Key(leaderboardKey(roomId)).Member(key.Id).Build()).AsFloat64()
		if valkey.IsValkeyNil(err) {
			return 0, nil
		}
		if err != nil {
			return 0, wrapStoreErr(err)
		}
		return int(math.Round(score)), nil
	}

	k, _ := s.counterKey(roomId, key)
	n, err := s.client.Do(ctx, s.client.B().Get().Key(k).Build()).AsInt64()
	if valkey.IsValkeyNil(err) {
		return 0, nil
	}
	if err != nil {
		return 0, wrapStoreErr(err)
	}
	return int(n), nil
}

func (s *ValkeyStore) ResetScore(ctx context.Context, roomId string, key domain.ScoreKey) error {
	if key.Kind == domain.ScorePlayer {
		cmd := s.client.B().Zadd().Key(leaderboardKey(roomId)).Xx().ScoreMember().ScoreMember(0, key.Id).Build()
		_, err := s.exec(ctx, roomId, valkey.Commands{cmd})
		return err
	}
	k, _ := s.counterKey(roomId, key)
	err := s.client.Do(ctx, s.client.B().Del().Key(k).Build()).Error()
	if err != nil {
		return wrapStoreErr(err)
	}
	return nil
}

// Leaderboard returns the player entries, highest score first.
func (s *ValkeyStore) Leaderboard(ctx context.Context, roomId string) ([]domain.ScoreEntry, error) {
	scores, err := s.client.Do(ctx, s.client.B().Zrevrange().Key(leaderboardKey(roomId)).Start(0).Stop(-1).Withscores().Build()).AsZScores()
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	entries := make([]domain.ScoreEntry, 0, len(scores))
	for _, z := range scores {
		entries = append(entries, domain.ScoreEntry{PlayerId: z.Member, Score: int(math.Round(z.Score))})
	}
	return entries, nil
}

func (s *ValkeyStore) counterKey(roomId string, key domain.ScoreKey) (string, time.Duration) {
	if key.Kind == domain.ScoreCoop {
		return coopScoreKey(roomId), s.coopTTL
	}
	return teamScoreKey(roomId, domain.TeamId(key.Id)), s.roomTTL
}
