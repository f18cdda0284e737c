package game

import (
	"cmp"
	"context"
	"slices"

	"github.com/AbhayTopno/PopQuiz/domain"
)

type Standing struct {
	Rank                 int    `json:"rank"`
	PlayerId             string `json:"playerId"`
	Username             string `json:"username"`
	Avatar               string `json:"avatar,omitempty"`
	Score                int    `json:"score"`
	CurrentQuestionIndex int    `json:"currentQuestionIndex"`
	Finished             bool   `json:"finished"`
}

type TeamStanding struct {
	Rank    int           `json:"rank"`
	TeamId  domain.TeamId `json:"teamId"`
	Score   int           `json:"score"`
	Members []string      `json:"members"`
}

// comparePlayers orders by score desc, question index desc, joinedAt asc, id.
func comparePlayers(a, b domain.Player) int {
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	if c := cmp.Compare(b.CurrentQuestionIndex, a.CurrentQuestionIndex); c != 0 {
		return c
	}
	if c := a.JoinedAt.Compare(b.JoinedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.Id, b.Id)
}

// rankPlayers sorts a copy of players. Players level on score and progress
// share a rank.
func rankPlayers(players []domain.Player) []Standing {
	sorted := slices.Clone(players)
	slices.SortFunc(sorted, comparePlayers)

	standings := make([]Standing, 0, len(sorted))
	for i, p := range sorted {
		rank := i + 1
		if i > 0 {
			prev := sorted[i-1]
			if prev.Score == p.Score && prev.CurrentQuestionIndex == p.CurrentQuestionIndex {
				rank = standings[i-1].Rank
			}
		}
		standings = append(standings, Standing{
			Rank:                 rank,
			PlayerId:             p.Id,
			Username:             p.Username,
			Avatar:               p.Avatar,
			Score:                p.Score,
			CurrentQuestionIndex: p.CurrentQuestionIndex,
			Finished:             p.Finished,
		})
	}
	return standings
}

func rankTeams(scores map[domain.TeamId]int, teams domain.TeamAssignment) []TeamStanding {
	standings := make([]TeamStanding, 0, len(domain.Teams))
	for _, team := range domain.Teams {
		standings = append(standings, TeamStanding{
			TeamId:  team,
			Score:   scores[team],
			Members: slices.Clone(teams.Members(team)),
		})
	}
	slices.SortStableFunc(standings, func(a, b TeamStanding) int {
		return cmp.Compare(b.Score, a.Score)
	})
	for i := range standings {
		standings[i].Rank = i + 1
		if i > 0 && standings[i-1].Score == standings[i].Score {
			standings[i].Rank = standings[i-1].Rank
		}
	}
	return standings
}

// playerWinner is empty when the top rank is shared.
func playerWinner(standings []Standing) string {
	if len(standings) == 0 || (len(standings) > 1 && standings[1].Rank == 1) {
		return ""
	}
	return standings[0].PlayerId
}

func teamWinner(standings []TeamStanding) string {
	if len(standings) < 2 || standings[1].Rank == 1 {
		return ""
	}
	return string(standings[0].TeamId)
}

// roomStandings is the ranked view of a room read straight from the store.
// Ledger scores take precedence over the copies on player records.
type roomStandings struct {
	Room      domain.Room
	Players   []domain.Player
	Standings []Standing
	Teams     []TeamStanding
	CoopScore *int
	Winner    string
}

func loadStandings(ctx context.Context, store RoomStore, roomId string) (roomStandings, error) {
	room, err := store.GetRoom(ctx, roomId)
	if err != nil {
		return roomStandings{}, err
	}
	players, err := store.GetAllPlayers(ctx, roomId)
	if err != nil {
		return roomStandings{}, err
	}

	res := roomStandings{Room: room, Players: players}
	switch {
	case room.Mode.HasTeams():
		teams, err := store.GetTeams(ctx, roomId)
		if err != nil {
			return roomStandings{}, err
		}
		scores := make(map[domain.TeamId]int, len(domain.Teams))
		for _, team := range domain.Teams {
			if scores[team], err = store.GetScore(ctx, roomId, domain.TeamScore(team)); err != nil {
				return roomStandings{}, err
			}
		}
		res.Teams = rankTeams(scores, teams)
		res.Winner = teamWinner(res.Teams)
	case room.Mode == domain.ModeCoop:
		score, err := store.GetScore(ctx, roomId, domain.CoopScore())
		if err != nil {
			return roomStandings{}, err
		}
		res.CoopScore = &score
	default:
		entries, err := store.Leaderboard(ctx, roomId)
		if err != nil {
			return roomStandings{}, err
		}
		ledger := make(map[string]int, len(entries))
		for _, e := range entries {
			ledger[e.PlayerId] = e.Score
		}
		for i, p := range players {
			if score, ok := ledger[p.Id]; ok {
				players[i].Score = score
			}
		}
	}
	res.Standings = rankPlayers(players)
	if !room.Mode.Cooperative() {
		res.Winner = playerWinner(res.Standings)
	}
	return res, nil
}
