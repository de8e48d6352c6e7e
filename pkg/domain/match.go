package domain

// Tier is the confidence class of a match.
type Tier int

const (
	TierNone Tier = iota
	TierMaybe
	TierDefinite
)

func (t Tier) String() string {
	switch t {
	case TierDefinite:
		return "definite"
	case TierMaybe:
		return "maybe"
	default:
		return "none"
	}
}

// CategoryScore is one entry of a classifier's output.
type CategoryScore struct {
	Category string
	Score    float64
}

// MatchResult is produced once per utterance by the intent matcher.
type MatchResult struct {
	Intent   string
	Tier     Tier
	Score    float64
	Greeting bool
}

// Definite reports whether the match cleared the minimum score.
func (m MatchResult) Definite() bool { return m.Tier == TierDefinite }

// NoMatch is the result returned when nothing scored above the thresholds.
func NoMatch(score float64) MatchResult {
	return MatchResult{Tier: TierNone, Score: score}
}
