package domain

type ScoreKind int

const (
	ScorePlayer ScoreKind = iota
	ScoreTeam
	ScoreCoop
)

// ScoreKey identifies one entry of a room's score ledger.
type ScoreKey struct {
	Kind ScoreKind
	Id   string
}

func PlayerScore(playerId string) ScoreKey { return ScoreKey{Kind: ScorePlayer, Id: playerId} }
func TeamScore(team TeamId) ScoreKey      { return ScoreKey{Kind: ScoreTeam, Id: string(team)} }
func CoopScore() ScoreKey                 { return ScoreKey{Kind: ScoreCoop} }

type ScoreEntry struct {
	PlayerId string
	Score    int
}
