package domain

import (
	"fmt"
	"slices"
)

type TeamId string

const (
	TeamA TeamId = "teamA"
	TeamB TeamId = "teamB"
)

var Teams = []TeamId{TeamA, TeamB}

func ParseTeamId(s string) (TeamId, bool) {
	switch TeamId(s) {
	case TeamA, TeamB:
		return TeamId(s), true
	}
	return "", false
}

// TeamAssignment holds the members of both teams. Members are either
// connection ids or usernames depending on which assignment it is.
// Version is the store revision the assignment was read at.
type TeamAssignment struct {
	TeamA   []string `json:"teamA"`
	TeamB   []string `json:"teamB"`
	Version int64    `json:"-"`
}

func (ta TeamAssignment) Clone() TeamAssignment {
	return TeamAssignment{
		TeamA:   slices.Clone(ta.TeamA),
		TeamB:   slices.Clone(ta.TeamB),
		Version: ta.Version,
	}
}

func (ta TeamAssignment) Members(team TeamId) []string {
	if team == TeamA {
		return ta.TeamA
	}
	return ta.TeamB
}

func (ta TeamAssignment) TeamOf(member string) (TeamId, bool) {
	switch {
	case slices.Contains(ta.TeamA, member):
		return TeamA, true
	case slices.Contains(ta.TeamB, member):
		return TeamB, true
	}
	return "", false
}

func (ta TeamAssignment) Empty() bool {
	return len(ta.TeamA) == 0 && len(ta.TeamB) == 0
}

// Smaller returns the team with fewer members, teamA on a tie.
func (ta TeamAssignment) Smaller() TeamId {
	if len(ta.TeamB) < len(ta.TeamA) {
		return TeamB
	}
	return TeamA
}

// Add places member in team and removes it from the other one.
func (ta *TeamAssignment) Add(team TeamId, member string) {
	ta.Remove(member)
	if team == TeamA {
		ta.TeamA = append(ta.TeamA, member)
	} else {
		ta.TeamB = append(ta.TeamB, member)
	}
}

// Remove drops member from both teams and reports whether it was present.
func (ta *TeamAssignment) Remove(member string) bool {
	before := len(ta.TeamA) + len(ta.TeamB)
	ta.TeamA = slices.DeleteFunc(ta.TeamA, func(m string) bool { return m == member })
	ta.TeamB = slices.DeleteFunc(ta.TeamB, func(m string) bool { return m == member })
	return before != len(ta.TeamA)+len(ta.TeamB)
}

// Prune drops every member for which keep returns false.
func (ta *TeamAssignment) Prune(keep func(member string) bool) bool {
	before := len(ta.TeamA) + len(ta.TeamB)
	drop := func(m string) bool { return !keep(m) }
	ta.TeamA = slices.DeleteFunc(ta.TeamA, drop)
	ta.TeamB = slices.DeleteFunc(ta.TeamB, drop)
	return before != len(ta.TeamA)+len(ta.TeamB)
}

// Equal compares members, ignoring Version.
func (ta TeamAssignment) Equal(other TeamAssignment) bool {
	return slices.Equal(ta.TeamA, other.TeamA) && slices.Equal(ta.TeamB, other.TeamB)
}

// Validate checks that no member appears twice.
func (ta TeamAssignment) Validate() error {
	seen := make(map[string]TeamId, len(ta.TeamA)+len(ta.TeamB))
	for _, team := range Teams {
		for _, m := range ta.Members(team) {
			if prev, ok := seen[m]; ok {
				return fmt.Errorf("%w: %q in %s and %s", ErrInvalidTeamAssignment, m, prev, team)
			}
			seen[m] = team
		}
	}
	return nil
}
