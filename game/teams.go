package game

import (
	"context"
	"slices"

	"github.com/AbhayTopno/PopQuiz/domain"
	"github.com/rs/zerolog/log"
)

// teamResolver keeps the connection-keyed assignment consistent with the
// players present and with the username-keyed assignment that survives
// reconnects. Every write goes through CompareAndSetTeams.
type teamResolver struct {
	store   RoomStore
	retries int
}

func newTeamResolver(store RoomStore, retries int) *teamResolver {
	return &teamResolver{store: store, retries: max(retries, 1)}
}

// assign places player in a team. present must include player.
func (tr *teamResolver) assign(ctx context.Context, roomId string, player domain.Player, present []domain.Player) (domain.TeamId, domain.TeamAssignment, error) {
	alive := make(map[string]bool, len(present))
	for _, p := range present {
		alive[p.Id] = true
	}

	for attempt := 0; attempt < tr.retries; attempt++ {
		current, err := tr.store.GetTeams(ctx, roomId)
		if err != nil {
			return "", domain.TeamAssignment{}, err
		}
		byName, err := tr.store.GetUsernameTeams(ctx, roomId)
		if err != nil {
			return "", domain.TeamAssignment{}, err
		}

		next := current.Clone()
		next.Prune(func(id string) bool { return alive[id] })
		for _, p := range present {
			team, ok := byName.TeamOf(p.Username)
			if !ok {
				continue
			}
			if cur, ok := next.TeamOf(p.Id); !ok || cur != team {
				next.Add(team, p.Id)
			}
		}

		team, ok := next.TeamOf(player.Id)
		if !ok {
			team = next.Smaller()
			next.Add(team, player.Id)
		}

		if !next.Equal(current) {
			written, err := tr.store.CompareAndSetTeams(ctx, roomId, next)
			if err != nil {
				return "", domain.TeamAssignment{}, err
			}
			if !written {
				log.Debug().Str("roomId", roomId).Int("attempt", attempt).Msg("team assignment changed concurrently, retrying")
				continue
			}
			next.Version++
		}

		if cur, ok := byName.TeamOf(player.Username); !ok || cur != team {
			byName.Add(team, player.Username)
			if err := tr.store.SetUsernameTeams(ctx, roomId, byName); err != nil {
				return "", domain.TeamAssignment{}, err
			}
		}
		return team, next, nil
	}
	return "", domain.TeamAssignment{}, domain.ErrTeamConflict
}

// remove drops player from the live assignment. With forget the username
// mapping goes too, so a later join is balanced like a new player.
func (tr *teamResolver) remove(ctx context.Context, roomId string, player domain.Player, forget bool) (domain.TeamAssignment, error) {
	var result domain.TeamAssignment
	removed := false
	for attempt := 0; attempt < tr.retries && !removed; attempt++ {
		current, err := tr.store.GetTeams(ctx, roomId)
		if err != nil {
			return domain.TeamAssignment{}, err
		}
		next := current.Clone()
		if !next.Remove(player.Id) {
			result, removed = current, true
			break
		}
		written, err := tr.store.CompareAndSetTeams(ctx, roomId, next)
		if err != nil {
			return domain.TeamAssignment{}, err
		}
		if written {
			next.Version++
			result, removed = next, true
		}
	}
	if !removed {
		return domain.TeamAssignment{}, domain.ErrTeamConflict
	}

	if forget {
		byName, err := tr.store.GetUsernameTeams(ctx, roomId)
		if err != nil {
			return domain.TeamAssignment{}, err
		}
		if byName.Remove(player.Username) {
			if err := tr.store.SetUsernameTeams(ctx, roomId, byName); err != nil {
				return domain.TeamAssignment{}, err
			}
		}
	}
	return result, nil
}

// replace installs a host-provided assignment. Ids of players not present
// are dropped and the username mapping is rebuilt from it.
func (tr *teamResolver) replace(ctx context.Context, roomId string, requested domain.TeamAssignment, present []domain.Player) (domain.TeamAssignment, error) {
	if err := requested.Validate(); err != nil {
		return domain.TeamAssignment{}, err
	}
	names := make(map[string]string, len(present))
	for _, p := range present {
		names[p.Id] = p.Username
	}

	next := domain.TeamAssignment{}
	byName := domain.TeamAssignment{}
	for _, team := range domain.Teams {
		for _, id := range requested.Members(team) {
			name, ok := names[id]
			if !ok {
				continue
			}
			next.Add(team, id)
			byName.Add(team, name)
		}
	}

	for attempt := 0; attempt < tr.retries; attempt++ {
		current, err := tr.store.GetTeams(ctx, roomId)
		if err != nil {
			return domain.TeamAssignment{}, err
		}
		next.Version = current.Version
		written, err := tr.store.CompareAndSetTeams(ctx, roomId, next)
		if err != nil {
			return domain.TeamAssignment{}, err
		}
		if !written {
			continue
		}
		next.Version++

		// disconnected players keep their durable team
		previous, err := tr.store.GetUsernameTeams(ctx, roomId)
		if err != nil {
			return domain.TeamAssignment{}, err
		}
		live := presentNames(present)
		for _, team := range domain.Teams {
			for _, name := range previous.Members(team) {
				if _, placed := byName.TeamOf(name); !placed && !slices.Contains(live, name) {
					byName.Add(team, name)
				}
			}
		}
		if err := tr.store.SetUsernameTeams(ctx, roomId, byName); err != nil {
			return domain.TeamAssignment{}, err
		}
		return next, nil
	}
	return domain.TeamAssignment{}, domain.ErrTeamConflict
}

func presentNames(players []domain.Player) []string {
	names := make([]string, 0, len(players))
	for _, p := range players {
		names = append(names, p.Username)
	}
	return names
}
