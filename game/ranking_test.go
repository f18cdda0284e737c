package game

import (
	"context"
	"testing"
	"time"

	"github.com/AbhayTopno/PopQuiz/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankPlayers(t *testing.T) {
	t.Parallel()
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	players := []domain.Player{
		{Id: "d", Username: "dora", Score: 100, CurrentQuestionIndex: 6, JoinedAt: t0},
		{Id: "b", Username: "bob", Score: 300, CurrentQuestionIndex: 5, JoinedAt: t0.Add(time.Second)},
		{Id: "c", Username: "carl", Score: 300, CurrentQuestionIndex: 4, JoinedAt: t0},
		{Id: "a", Username: "alice", Score: 300, CurrentQuestionIndex: 5, JoinedAt: t0},
	}

	got := rankPlayers(players)

	want := []Standing{
		{Rank: 1, PlayerId: "a", Username: "alice", Score: 300, CurrentQuestionIndex: 5},
		{Rank: 1, PlayerId: "b", Username: "bob", Score: 300, CurrentQuestionIndex: 5},
		{Rank: 3, PlayerId: "c", Username: "carl", Score: 300, CurrentQuestionIndex: 4},
		{Rank: 4, PlayerId: "d", Username: "dora", Score: 100, CurrentQuestionIndex: 6},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("rankPlayers() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "d", players[0].Id, "input must not be reordered")
	assert.Empty(t, playerWinner(got))
}

func TestPlayerWinner(t *testing.T) {
	t.Parallel()
	assert.Empty(t, playerWinner(nil))
	assert.Equal(t, "solo", playerWinner([]Standing{{Rank: 1, PlayerId: "solo"}}))
	assert.Equal(t, "a", playerWinner([]Standing{{Rank: 1, PlayerId: "a"}, {Rank: 2, PlayerId: "b"}}))
}

func TestRankTeams(t *testing.T) {
	t.Parallel()
	teams := domain.TeamAssignment{TeamA: []string{"a1", "a2"}, TeamB: []string{"b1", "b2"}}

	t.Run("higher score wins", func(t *testing.T) {
		got := rankTeams(map[domain.TeamId]int{domain.TeamA: 200, domain.TeamB: 350}, teams)
		want := []TeamStanding{
			{Rank: 1, TeamId: domain.TeamB, Score: 350, Members: []string{"b1", "b2"}},
			{Rank: 2, TeamId: domain.TeamA, Score: 200, Members: []string{"a1", "a2"}},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("rankTeams() mismatch (-want +got):\n%s", diff)
		}
		assert.Equal(t, "teamB", teamWinner(got))
	})

	t.Run("tie shares the rank", func(t *testing.T) {
		got := rankTeams(map[domain.TeamId]int{domain.TeamA: 120, domain.TeamB: 120}, teams)
		require.Len(t, got, 2)
		assert.Equal(t, domain.TeamA, got[0].TeamId)
		assert.Equal(t, 1, got[0].Rank)
		assert.Equal(t, 1, got[1].Rank)
		assert.Empty(t, teamWinner(got))
	})
}

func TestLoadStandings_LedgerOverridesPlayerRecords(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := env.clock.Now()

	require.NoError(t, env.store.CreateRoom(ctx, domain.Room{Id: "r1", Mode: domain.ModeFFA, HostId: "a", CreatedAt: now}))
	require.NoError(t, env.store.AddPlayer(ctx, "r1", domain.Player{Id: "a", Username: "alice", JoinedAt: now}))
	require.NoError(t, env.store.AddPlayer(ctx, "r1", domain.Player{Id: "b", Username: "bob", JoinedAt: now.Add(time.Second)}))
	_, err := env.store.IncrementScore(ctx, "r1", domain.PlayerScore("b"), 150)
	require.NoError(t, err)

	res, err := loadStandings(ctx, env.store, "r1")
	require.NoError(t, err)

	require.Len(t, res.Standings, 2)
	assert.Equal(t, "b", res.Standings[0].PlayerId)
	assert.Equal(t, 150, res.Standings[0].Score)
	assert.Equal(t, "b", res.Winner)
	assert.Nil(t, res.Teams)
	assert.Nil(t, res.CoopScore)
}

func TestLoadStandings_Teams(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.store.CreateRoom(ctx, domain.Room{Id: "r1", Mode: domain.ModeTwoVsTwo, CreatedAt: env.clock.Now()}))
	_, err := env.store.CompareAndSetTeams(ctx, "r1", domain.TeamAssignment{TeamA: []string{"a"}, TeamB: []string{"b"}})
	require.NoError(t, err)
	_, err = env.store.IncrementScore(ctx, "r1", domain.TeamScore(domain.TeamA), 300)
	require.NoError(t, err)

	res, err := loadStandings(ctx, env.store, "r1")
	require.NoError(t, err)

	require.Len(t, res.Teams, 2)
	assert.Equal(t, domain.TeamA, res.Teams[0].TeamId)
	assert.Equal(t, 300, res.Teams[0].Score)
	assert.Equal(t, "teamA", res.Winner)
}

func TestLoadStandings_MissingRoom(t *testing.T) {
	env := newTestEnv(t)
	_, err := loadStandings(context.Background(), env.store, "nope")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}
