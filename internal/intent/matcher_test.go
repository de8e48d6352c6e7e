package intent_test

import (
	"context"
	"errors"
	"testing"

	"github.com/bbkanego/seerbot/internal/intent"
	"github.com/bbkanego/seerbot/internal/nlp"
	"github.com/bbkanego/seerbot/pkg/domain"
	"github.com/bbkanego/seerbot/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type spyClassifier struct {
	calls  int
	scores []domain.CategoryScore
	err    error
	panic  bool
}

func (s *spyClassifier) Categorize(_ context.Context, _ []string) ([]domain.CategoryScore, error) {
	s.calls++
	if s.panic {
		panic("model corrupted")
	}
	return s.scores, s.err
}

type source struct {
	clf        ports.Classifier
	min, maybe float64
}

func (s source) BotID() string                { return "bot-1" }
func (s source) Tokenizer() ports.Tokenizer   { return nlp.SimpleTokenizer{} }
func (s source) Classifier() ports.Classifier { return s.clf }
func (s source) MinMatchScore() float64       { return s.min }
func (s source) MaybeMatchScore() float64     { return s.maybe }

func TestMatch_GreetingSkipsClassifier(t *testing.T) {
	m := intent.NewMatcher()
	spy := &spyClassifier{}
	src := source{clf: spy, min: 0.7, maybe: 0.4}

	for _, u := range []string{"hi", "Hello!", "hey hey", "  Namaste.  ", "ciao, hi"} {
		t.Run(u, func(t *testing.T) {
			res, err := m.Match(context.Background(), u, src)
			require.NoError(t, err)
			assert.Equal(t, intent.GreetingIntent, res.Intent)
			assert.Equal(t, domain.TierDefinite, res.Tier)
			assert.True(t, res.Greeting)
		})
	}
	assert.Zero(t, spy.calls, "the classifier must not be consulted for greetings")
}

func TestIsGreeting(t *testing.T) {
	assert.False(t, intent.IsGreeting(""))
	assert.False(t, intent.IsGreeting("   "))
	assert.False(t, intent.IsGreeting("hi there"))
	assert.False(t, intent.IsGreeting("high"))
	assert.True(t, intent.IsGreeting("OLA?!"))
}

func TestMatch_Tiers(t *testing.T) {
	tests := []struct {
		name       string
		score      float64
		min, maybe float64
		want       domain.Tier
		intent     string
	}{
		{"definite at threshold", 0.7, 0.7, 0.4, domain.TierDefinite, "Hours"},
		{"maybe band", 0.5, 0.7, 0.4, domain.TierMaybe, "Hours"},
		{"maybe lower bound", 0.4, 0.7, 0.4, domain.TierMaybe, "Hours"},
		{"below maybe", 0.39, 0.7, 0.4, domain.TierNone, ""},
		{"maybe disabled", 0.5, 0.7, -1, domain.TierNone, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spy := &spyClassifier{scores: []domain.CategoryScore{
				{Category: "Hours", Score: tt.score},
				{Category: "Menu", Score: tt.score / 2},
			}}
			res, err := intent.NewMatcher().Match(context.Background(), "when do you open", source{clf: spy, min: tt.min, maybe: tt.maybe})
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Tier)
			assert.Equal(t, tt.intent, res.Intent)
			assert.Equal(t, tt.score, res.Score)
			assert.Equal(t, 1, spy.calls)
		})
	}
}

func TestMatch_TieBreaksOnSmallestName(t *testing.T) {
	spy := &spyClassifier{scores: []domain.CategoryScore{
		{Category: "Menu", Score: 0.45},
		{Category: "Hours", Score: 0.45},
		{Category: "Weather", Score: 0.1},
	}}
	res, err := intent.NewMatcher().Match(context.Background(), "open menu", source{clf: spy, min: 0.4, maybe: 0.2})
	require.NoError(t, err)
	assert.Equal(t, "Hours", res.Intent)
}

func TestMatch_EmptyScores(t *testing.T) {
	res, err := intent.NewMatcher().Match(context.Background(), "zzz", source{clf: &spyClassifier{}, min: 0.5, maybe: 0})
	require.NoError(t, err)
	assert.Equal(t, domain.TierNone, res.Tier)
	assert.Empty(t, res.Intent)
}

func TestMatch_ClassifierFailures(t *testing.T) {
	ctx := context.Background()

	_, err := intent.NewMatcher().Match(ctx, "x", source{clf: &spyClassifier{err: errors.New("oom")}})
	assert.ErrorIs(t, err, domain.ErrClassifierFailure)

	_, err = intent.NewMatcher().Match(ctx, "x", source{clf: &spyClassifier{panic: true}})
	assert.ErrorIs(t, err, domain.ErrClassifierFailure)
	var cerr *domain.ClassifierError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "bot-1", cerr.BotID)
}

func TestMatch_FiresHook(t *testing.T) {
	var got []domain.MatchResult
	m := intent.NewMatcher(intent.WithHooks(domain.LifecycleHooks{
		OnMatch: func(_ context.Context, e *domain.MatchEvent) {
			assert.Equal(t, "bot-1", e.BotID)
			got = append(got, e.Result)
		},
	}))
	spy := &spyClassifier{scores: []domain.CategoryScore{{Category: "Hours", Score: 0.9}}}

	_, err := m.Match(context.Background(), "hello", source{clf: spy, min: 0.5})
	require.NoError(t, err)
	_, err = m.Match(context.Background(), "hours please", source{clf: spy, min: 0.5})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.True(t, got[0].Greeting)
	assert.Equal(t, "Hours", got[1].Intent)
}
