package storage

import (
	"context"
	"slices"
	"strings"

	"github.com/AbhayTopno/PopQuiz/domain"
	"github.com/valkey-io/valkey-go"
)

func (s *ValkeyStore) AddCoopMember(ctx context.Context, roomId string, m domain.CoopMember) error {
	raw, err := encodeCoopMember(m)
	if err != nil {
		return err
	}
	cmds := valkey.Commands{
		s.client.B().Hset().Key(coopMembersKey(roomId)).FieldValue().FieldValue(m.Id, raw).Build(),
		s.expire(coopMembersKey(roomId), s.coopTTL),
	}
	_, err = s.exec(ctx, roomId, cmds)
	return err
}

func (s *ValkeyStore) RemoveCoopMember(ctx context.Context, roomId, memberId string) error {
	cmd := s.client.B().Hdel().Key(coopMembersKey(roomId)).Field(memberId).Build()
	_, err := s.exec(ctx, roomId, valkey.Commands{cmd})
	return err
}

// CoopMembers returns the roster sorted by username.
func (s *ValkeyStore) CoopMembers(ctx context.Context, roomId string) ([]domain.CoopMember, error) {
	fields, err := s.client.Do(ctx, s.client.B().Hgetall().Key(coopMembersKey(roomId)).Build()).AsStrMap()
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	members := make([]domain.CoopMember, 0, len(fields))
	for _, raw := range fields {
		m, err := decodeCoopMember(raw)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	slices.SortFunc(members, func(a, b domain.CoopMember) int {
		if c := strings.Compare(a.Username, b.Username); c != 0 {
			return c
		}
		return strings.Compare(a.Id, b.Id)
	})
	return members, nil
}
