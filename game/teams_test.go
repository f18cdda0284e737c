package game

import (
	"context"
	"fmt"
	"testing"

	"github.com/AbhayTopno/PopQuiz/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// racingStore makes the next races team writes lose against a competing one.
type racingStore struct {
	RoomStore
	races int
	calls int
}

func (s *racingStore) CompareAndSetTeams(ctx context.Context, roomId string, next domain.TeamAssignment) (bool, error) {
	s.calls++
	if s.races > 0 {
		s.races--
		cur, err := s.RoomStore.GetTeams(ctx, roomId)
		if err != nil {
			return false, err
		}
		cur.Add(domain.TeamB, fmt.Sprintf("intruder-%d", s.calls))
		if _, err := s.RoomStore.CompareAndSetTeams(ctx, roomId, cur); err != nil {
			return false, err
		}
	}
	return s.RoomStore.CompareAndSetTeams(ctx, roomId, next)
}

func teamPlayer(id, username string) domain.Player {
	return domain.Player{Id: id, Username: username}
}

func TestTeamResolver_AssignBalances(t *testing.T) {
	env := newTestEnv(t)
	tr := newTeamResolver(env.store, 3)
	ctx := context.Background()

	a, b, c := teamPlayer("a", "alice"), teamPlayer("b", "bob"), teamPlayer("c", "carl")

	team, _, err := tr.assign(ctx, "r1", a, []domain.Player{a})
	require.NoError(t, err)
	assert.Equal(t, domain.TeamA, team)

	team, _, err = tr.assign(ctx, "r1", b, []domain.Player{a, b})
	require.NoError(t, err)
	assert.Equal(t, domain.TeamB, team)

	team, teams, err := tr.assign(ctx, "r1", c, []domain.Player{a, b, c})
	require.NoError(t, err)
	assert.Equal(t, domain.TeamA, team)
	assert.Equal(t, []string{"a", "c"}, teams.TeamA)
	assert.Equal(t, []string{"b"}, teams.TeamB)

	stored, err := env.store.GetTeams(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, stored.Equal(teams))
	assert.Equal(t, teams.Version, stored.Version)

	byName, err := env.store.GetUsernameTeams(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "carl"}, byName.TeamA)
	assert.Equal(t, []string{"bob"}, byName.TeamB)
}

func TestTeamResolver_AssignAgain(t *testing.T) {
	env := newTestEnv(t)
	tr := newTeamResolver(env.store, 3)
	ctx := context.Background()
	a := teamPlayer("a", "alice")

	first, _, err := tr.assign(ctx, "r1", a, []domain.Player{a})
	require.NoError(t, err)
	before, err := env.store.GetTeams(ctx, "r1")
	require.NoError(t, err)

	second, _, err := tr.assign(ctx, "r1", a, []domain.Player{a})
	require.NoError(t, err)
	after, err := env.store.GetTeams(ctx, "r1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, before.Version, after.Version, "unchanged assignment is not rewritten")
}

func TestTeamResolver_ReconnectKeepsTeam(t *testing.T) {
	env := newTestEnv(t)
	tr := newTeamResolver(env.store, 3)
	ctx := context.Background()

	require.NoError(t, env.store.SetUsernameTeams(ctx, "r1", domain.TeamAssignment{TeamB: []string{"alice"}}))

	a2 := teamPlayer("a2", "alice")
	team, teams, err := tr.assign(ctx, "r1", a2, []domain.Player{a2})
	require.NoError(t, err)
	assert.Equal(t, domain.TeamB, team)
	assert.Equal(t, []string{"a2"}, teams.TeamB)
	assert.Empty(t, teams.TeamA)
}

func TestTeamResolver_PrunesStaleConnections(t *testing.T) {
	env := newTestEnv(t)
	tr := newTeamResolver(env.store, 3)
	ctx := context.Background()

	written, err := env.store.CompareAndSetTeams(ctx, "r1", domain.TeamAssignment{TeamA: []string{"ghost"}, TeamB: []string{"gone"}})
	require.NoError(t, err)
	require.True(t, written)

	a := teamPlayer("a", "alice")
	team, teams, err := tr.assign(ctx, "r1", a, []domain.Player{a})
	require.NoError(t, err)
	assert.Equal(t, domain.TeamA, team)
	assert.Equal(t, []string{"a"}, teams.TeamA)
	assert.Empty(t, teams.TeamB)
}

func TestTeamResolver_Remove(t *testing.T) {
	testCases := []struct {
		name       string
		forget     bool
		expectName []string
	}{
		{name: "leave keeps the durable team", forget: false, expectName: []string{"bob"}},
		{name: "kick forgets the durable team", forget: true, expectName: []string{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			tr := newTeamResolver(env.store, 3)
			ctx := context.Background()
			a, b := teamPlayer("a", "alice"), teamPlayer("b", "bob")

			_, _, err := tr.assign(ctx, "r1", a, []domain.Player{a})
			require.NoError(t, err)
			_, _, err = tr.assign(ctx, "r1", b, []domain.Player{a, b})
			require.NoError(t, err)

			teams, err := tr.remove(ctx, "r1", b, tc.forget)
			require.NoError(t, err)
			assert.Equal(t, []string{"a"}, teams.TeamA)
			assert.Empty(t, teams.TeamB)

			byName, err := env.store.GetUsernameTeams(ctx, "r1")
			require.NoError(t, err)
			assert.Equal(t, tc.expectName, byName.TeamB)
		})
	}
}

func TestTeamResolver_RemoveUnknownPlayer(t *testing.T) {
	env := newTestEnv(t)
	tr := newTeamResolver(env.store, 3)

	teams, err := tr.remove(context.Background(), "r1", teamPlayer("x", "xavier"), false)
	require.NoError(t, err)
	assert.True(t, teams.Empty())
}

func TestTeamResolver_Replace(t *testing.T) {
	env := newTestEnv(t)
	tr := newTeamResolver(env.store, 3)
	ctx := context.Background()
	a, b, c := teamPlayer("a", "alice"), teamPlayer("b", "bob"), teamPlayer("c", "carl")
	present := []domain.Player{a, b, c}

	for _, p := range present {
		_, _, err := tr.assign(ctx, "r1", p, present)
		require.NoError(t, err)
	}
	// dora left earlier and still has a durable team
	byName, err := env.store.GetUsernameTeams(ctx, "r1")
	require.NoError(t, err)
	byName.Add(domain.TeamB, "dora")
	require.NoError(t, env.store.SetUsernameTeams(ctx, "r1", byName))

	teams, err := tr.replace(ctx, "r1", domain.TeamAssignment{
		TeamA: []string{"b", "nobody"},
		TeamB: []string{"a", "c"},
	}, present)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, teams.TeamA)
	assert.Equal(t, []string{"a", "c"}, teams.TeamB)

	byName, err = env.store.GetUsernameTeams(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, byName.TeamA)
	assert.ElementsMatch(t, []string{"alice", "carl", "dora"}, byName.TeamB)
}

func TestTeamResolver_ReplaceRejectsDuplicates(t *testing.T) {
	env := newTestEnv(t)
	tr := newTeamResolver(env.store, 3)
	a := teamPlayer("a", "alice")

	_, err := tr.replace(context.Background(), "r1", domain.TeamAssignment{
		TeamA: []string{"a"},
		TeamB: []string{"a"},
	}, []domain.Player{a})
	assert.ErrorIs(t, err, domain.ErrInvalidTeamAssignment)
}

func TestTeamResolver_RetriesLostWrite(t *testing.T) {
	env := newTestEnv(t)
	racer := &racingStore{RoomStore: env.store, races: 1}
	tr := newTeamResolver(racer, 3)
	a := teamPlayer("a", "alice")

	team, teams, err := tr.assign(context.Background(), "r1", a, []domain.Player{a})
	require.NoError(t, err)
	assert.Equal(t, domain.TeamA, team)
	assert.Equal(t, []string{"a"}, teams.TeamA)
	assert.Empty(t, teams.TeamB, "the competing write is pruned on retry")
	assert.Equal(t, 2, racer.calls)
}

func TestTeamResolver_GivesUpAfterRetries(t *testing.T) {
	env := newTestEnv(t)
	racer := &racingStore{RoomStore: env.store, races: 100}
	tr := newTeamResolver(racer, 3)
	a := teamPlayer("a", "alice")

	_, _, err := tr.assign(context.Background(), "r1", a, []domain.Player{a})
	assert.ErrorIs(t, err, domain.ErrTeamConflict)
	assert.Equal(t, 3, racer.calls)
}
