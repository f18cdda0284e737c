package domain

import "fmt"

type Mode string

const (
	ModeOneVsOne Mode = "1v1"
	ModeTwoVsTwo Mode = "2v2"
	ModeCoop     Mode = "coop"
	ModeCustom   Mode = "custom"
	ModeFFA      Mode = "ffa"
)

var Modes = []Mode{ModeOneVsOne, ModeTwoVsTwo, ModeCoop, ModeCustom, ModeFFA}

// ParseMode maps a wire value to a Mode. An empty value means 1v1.
func ParseMode(s string) (Mode, error) {
	if s == "" {
		return ModeOneVsOne, nil
	}
	for _, m := range Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Capacity is the maximum number of players a room of this mode holds.
func (m Mode) Capacity() int {
	switch m {
	case ModeOneVsOne:
		return 2
	case ModeTwoVsTwo:
		return 4
	default:
		return 10
	}
}

// HasTeams reports whether players are split into teamA and teamB.
func (m Mode) HasTeams() bool {
	return m == ModeTwoVsTwo || m == ModeCustom
}

// Cooperative reports whether a group shares a single score counter.
func (m Mode) Cooperative() bool {
	return m == ModeTwoVsTwo || m == ModeCustom || m == ModeCoop
}
