package game

import (
	"context"
	"strings"

	"github.com/AbhayTopno/PopQuiz/domain"
)

func findPlayer(players []domain.Player, id string) (domain.Player, bool) {
	for _, p := range players {
		if p.Id == id {
			return p, true
		}
	}
	return domain.Player{}, false
}

// upsertPlayer replaces the entry with p.Id or appends p.
func upsertPlayer(players []domain.Player, p domain.Player) []domain.Player {
	for i := range players {
		if players[i].Id == p.Id {
			players[i] = p
			return players
		}
	}
	return append(players, p)
}

func effectiveUsername(identity domain.User, claimed string) string {
	if identity.Username != "" {
		return identity.Username
	}
	if claimed = strings.TrimSpace(claimed); claimed != "" {
		return claimed
	}
	return "Player"
}

// nextHost is the earliest joined player other than leaving. players must be
// ordered by join time.
func nextHost(players []domain.Player, leaving string) (domain.Player, bool) {
	for _, p := range players {
		if p.Id != leaving {
			return p, true
		}
	}
	return domain.Player{}, false
}

func allFinished(players []domain.Player) bool {
	if len(players) == 0 {
		return false
	}
	for _, p := range players {
		if !p.Finished {
			return false
		}
	}
	return true
}

func membersOf(players []domain.Player, ids []string) []domain.Player {
	members := make([]domain.Player, 0, len(ids))
	for _, p := range players {
		for _, id := range ids {
			if p.Id == id {
				members = append(members, p)
				break
			}
		}
	}
	return members
}

// snapshot is what a joining player needs to render the room.
func (r *room) snapshot(ctx context.Context, room domain.Room) (roomStatePayload, error) {
	players, err := r.store.GetAllPlayers(ctx, r.id)
	if err != nil {
		return roomStatePayload{}, err
	}
	chat, err := r.store.ChatHistory(ctx, r.id)
	if err != nil {
		return roomStatePayload{}, err
	}

	state := roomStatePayload{
		RoomId:       room.Id,
		QuizId:       room.QuizId,
		Mode:         room.Mode,
		HostId:       room.HostId,
		GameStarted:  room.GameStarted,
		GameFinished: room.GameFinished,
		Capacity:     room.Mode.Capacity(),
		Chat:         chat,
	}

	var teams domain.TeamAssignment
	if room.Mode.HasTeams() {
		if teams, err = r.store.GetTeams(ctx, r.id); err != nil {
			return roomStatePayload{}, err
		}
		state.TeamAssignments = &teams
		state.TeamScores = make(map[domain.TeamId]int, len(domain.Teams))
		for _, team := range domain.Teams {
			if state.TeamScores[team], err = r.store.GetScore(ctx, r.id, domain.TeamScore(team)); err != nil {
				return roomStatePayload{}, err
			}
		}
	}
	if room.Mode == domain.ModeCoop {
		score, err := r.store.GetScore(ctx, r.id, domain.CoopScore())
		if err != nil {
			return roomStatePayload{}, err
		}
		state.CoopScore = &score
		if state.CoopMembers, err = r.store.CoopMembers(ctx, r.id); err != nil {
			return roomStatePayload{}, err
		}
	}

	state.Players = make([]playerView, 0, len(players))
	for _, p := range players {
		team, _ := teams.TeamOf(p.Id)
		state.Players = append(state.Players, viewOf(p, team))
	}
	return state, nil
}
