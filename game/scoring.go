package game

import (
	"time"

	"github.com/AbhayTopno/PopQuiz/domain"
	"github.com/shopspring/decimal"
)

const basePoints = 100

var (
	maxTimeBonus = decimal.NewFromInt(2)
	one          = decimal.NewFromInt(1)
)

func difficultyMultiplier(d domain.Difficulty) decimal.Decimal {
	switch d {
	case domain.DifficultyEasy:
		return decimal.NewFromInt(1)
	case domain.DifficultyHard:
		return decimal.NewFromInt(2)
	default:
		return decimal.NewFromFloat(1.5)
	}
}

// CalculatePoints returns the points for a correct answer given with
// timeLeft of duration remaining. A non-positive duration earns no time bonus.
func CalculatePoints(d domain.Difficulty, timeLeft, duration time.Duration) int {
	ratio := decimal.Zero
	if duration > 0 {
		timeLeft = min(max(timeLeft, 0), duration)
		ratio = decimal.NewFromInt(int64(timeLeft)).Div(decimal.NewFromInt(int64(duration)))
	}
	bonus := one.Add(ratio.Mul(maxTimeBonus.Sub(one)))
	points := decimal.NewFromInt(basePoints).Mul(difficultyMultiplier(d)).Mul(bonus)
	return int(points.Round(0).IntPart())
}

// capClaimedPoints accepts a client claim up to the server value. A
// non-positive claim is replaced by the server value.
func capClaimedPoints(claimed, server int) int {
	if claimed <= 0 {
		return server
	}
	return min(claimed, server)
}
