package classify

const (
	maxScore        = 100
	highThreshold   = 70
	mediumThreshold = 35
)

// finding is one fired rule: its score delta and the reason shown to users.
type finding struct {
	delta  int
	reason string
}

// aggregate sums the fired deltas, clamps to [0, 100] and maps the result to
// a level. Reasons keep evaluation order.
func aggregate(findings []finding) (int, Level, []string) {
	score := 0
	reasons := make([]string, 0, len(findings))
	for _, f := range findings {
		score += f.delta
		reasons = append(reasons, f.reason)
	}
	score = ClampScore(score)
	return score, LevelFor(score), reasons
}

// ClampScore bounds a raw rule sum to [0, 100].
func ClampScore(score int) int {
	return max(0, min(maxScore, score))
}

// LevelFor maps a clamped score to its risk level.
func LevelFor(score int) Level {
	switch {
	case score >= highThreshold:
		return LevelHigh
	case score >= mediumThreshold:
		return LevelMedium
	default:
		return LevelSafe
	}
}
