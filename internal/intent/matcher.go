// Package intent resolves an utterance to an intent and a confidence tier.
package intent

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/bbkanego/seerbot/internal/logging"
	"github.com/bbkanego/seerbot/pkg/domain"
	"github.com/bbkanego/seerbot/pkg/ports"
)

// GreetingIntent is the reserved intent answered by the greeting fast path.
const GreetingIntent = "HI"

var greetings = map[string]struct{}{
	"hi": {}, "hello": {}, "hey": {}, "ola": {}, "namaste": {}, "ciao": {},
}

// Source is the part of a bot configuration the matcher needs.
type Source interface {
	BotID() string
	Tokenizer() ports.Tokenizer
	Classifier() ports.Classifier
	MinMatchScore() float64
	// MaybeMatchScore is negative when the maybe tier is disabled.
	MaybeMatchScore() float64
}

// Matcher turns utterances into match results.
type Matcher struct {
	hooks  domain.LifecycleHooks
	logger *slog.Logger
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithHooks registers the OnMatch hook.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(m *Matcher) {
		m.hooks = hooks
	}
}

// WithLogger configures a logger for the Matcher.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Matcher) {
		m.logger = logger
	}
}

// NewMatcher creates a matcher.
func NewMatcher(opts ...Option) *Matcher {
	m := &Matcher{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Match resolves utterance against the bot's classifier.
//
// Greetings short-circuit to a definite GreetingIntent without calling the
// classifier. Otherwise the best category is tiered against the bot's thresholds;
// equal top scores resolve to the lexicographically smallest category.
func (m *Matcher) Match(ctx context.Context, utterance string, src Source) (domain.MatchResult, error) {
	if IsGreeting(utterance) {
		res := domain.MatchResult{Intent: GreetingIntent, Tier: domain.TierDefinite, Score: 1, Greeting: true}
		m.emit(ctx, src.BotID(), res)
		return res, nil
	}

	scores, err := m.categorize(ctx, src, utterance)
	if err != nil {
		return domain.MatchResult{}, err
	}

	category, score, ok := top(scores)
	res := domain.NoMatch(score)
	switch {
	case !ok:
		res = domain.NoMatch(0)
	case score >= src.MinMatchScore():
		res = domain.MatchResult{Intent: category, Tier: domain.TierDefinite, Score: score}
	case src.MaybeMatchScore() >= 0 && score >= src.MaybeMatchScore():
		res = domain.MatchResult{Intent: category, Tier: domain.TierMaybe, Score: score}
	}

	m.logger.DebugContext(ctx, "Matched utterance",
		"bot_id", src.BotID(),
		"intent", res.Intent,
		"tier", res.Tier.String(),
		"score", res.Score,
	)
	m.emit(ctx, src.BotID(), res)
	return res, nil
}

func (m *Matcher) categorize(ctx context.Context, src Source, utterance string) (scores []domain.CategoryScore, err error) {
	defer func() {
		if r := recover(); r != nil {
			scores = nil
			err = &domain.ClassifierError{BotID: src.BotID(), Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	tokens := src.Tokenizer().Tokenize(utterance)
	scores, err = src.Classifier().Categorize(ctx, tokens)
	if err != nil {
		return nil, &domain.ClassifierError{BotID: src.BotID(), Err: err}
	}
	return scores, nil
}

func (m *Matcher) emit(ctx context.Context, botID string, res domain.MatchResult) {
	if m.hooks.OnMatch == nil {
		return
	}
	m.hooks.OnMatch(ctx, &domain.MatchEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventMatch},
		BotID:     botID,
		Result:    res,
	})
}

// top groups scores by value and returns the smallest category name among the
// highest score.
func top(scores []domain.CategoryScore) (string, float64, bool) {
	groups := make(map[float64][]string)
	for _, s := range scores {
		if s.Category == "" || math.IsNaN(s.Score) {
			continue
		}
		groups[s.Score] = append(groups[s.Score], s.Category)
	}
	if len(groups) == 0 {
		return "", 0, false
	}

	first := true
	var best float64
	for score := range groups {
		if first || score > best {
			best, first = score, false
		}
	}
	names := groups[best]
	sort.Strings(names)
	return names[0], best, true
}

// IsGreeting reports whether every word of utterance is a greeting, ignoring case
// and trailing punctuation.
func IsGreeting(utterance string) bool {
	words := strings.Fields(utterance)
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		w = strings.ToLower(strings.TrimRightFunc(w, unicode.IsPunct))
		if _, ok := greetings[w]; !ok {
			return false
		}
	}
	return true
}
