package storage

import (
	"context"
	"strconv"
	"time"

	"github.com/AbhayTopno/PopQuiz/domain"
	"github.com/valkey-io/valkey-go"
)

// KEYS[1] teams hash. ARGV: expected version, teamA json, teamB json, ttl seconds.
var compareAndSetTeams = valkey.NewLuaScript(`
local current = redis.call('HGET', KEYS[1], 'version')
if not current then
	current = '0'
end
if current ~= ARGV[1] then
	return 0
end
redis.call('HSET', KEYS[1], 'version', tostring(tonumber(ARGV[1]) + 1), 'teamA', ARGV[2], 'teamB', ARGV[3])
redis.call('EXPIRE', KEYS[1], ARGV[4])
return 1
`)

// GetTeams returns the connection-keyed assignment with its version.
func (s *ValkeyStore) GetTeams(ctx context.Context, roomId string) (domain.TeamAssignment, error) {
	return s.readTeams(ctx, teamsKey(roomId))
}

// CompareAndSetTeams writes next if the stored version still equals
// next.Version. It reports false on a concurrent write.
func (s *ValkeyStore) CompareAndSetTeams(ctx context.Context, roomId string, next domain.TeamAssignment) (bool, error) {
	args := []string{
		strconv.FormatInt(next.Version, 10),
		encodeMembers(next.TeamA),
		encodeMembers(next.TeamB),
		strconv.FormatInt(int64(s.roomTTL/time.Second), 10),
	}
	n, err := compareAndSetTeams.Exec(ctx, s.client, []string{teamsKey(roomId)}, args).AsInt64()
	if err != nil {
		return false, wrapStoreErr(err)
	}
	return n == 1, nil
}

func (s *ValkeyStore) GetUsernameTeams(ctx context.Context, roomId string) (domain.TeamAssignment, error) {
	return s.readTeams(ctx, teamsByUsernameKey(roomId))
}

func (s *ValkeyStore) SetUsernameTeams(ctx context.Context, roomId string, teams domain.TeamAssignment) error {
	cmd := s.client.B().Hset().Key(teamsByUsernameKey(roomId)).FieldValue().
		FieldValue("teamA", encodeMembers(teams.TeamA)).
		FieldValue("teamB", encodeMembers(teams.TeamB)).
		Build()
	_, err := s.exec(ctx, roomId, valkey.Commands{cmd}, teamsByUsernameKey(roomId))
	return err
}

func (s *ValkeyStore) readTeams(ctx context.Context, key string) (domain.TeamAssignment, error) {
	fields, err := s.client.Do(ctx, s.client.B().Hgetall().Key(key).Build()).AsStrMap()
	if err != nil {
		return domain.TeamAssignment{}, wrapStoreErr(err)
	}

	ta := domain.TeamAssignment{}
	if ta.TeamA, err = decodeMembers(fields["teamA"]); err != nil {
		return domain.TeamAssignment{}, err
	}
	if ta.TeamB, err = decodeMembers(fields["teamB"]); err != nil {
		return domain.TeamAssignment{}, err
	}
	if v, ok := fields["version"]; ok {
		ta.Version, _ = strconv.ParseInt(v, 10, 64)
	}
	return ta, nil
}
