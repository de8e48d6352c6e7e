package botconfig_test

import (
	"context"
	"errors"
	"testing"

	"github.com/bbkanego/seerbot/internal/botconfig"
	"github.com/bbkanego/seerbot/internal/nlp"
	"github.com/bbkanego/seerbot/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const model = `
name: support
categories:
  - name: Hours
    samples: [when are you open, opening hours]
  - name: Menu
    samples: [show me the menu, what do you serve]
`

type catalog struct {
	launch     map[string]domain.LaunchInfo
	intents    []domain.IntentDef
	launchErr  error
	intentsErr error
}

func (c *catalog) FindByBotID(_ context.Context, botID string) (domain.LaunchInfo, error) {
	if c.launchErr != nil {
		return domain.LaunchInfo{}, c.launchErr
	}
	info, ok := c.launch[botID]
	if !ok {
		return domain.LaunchInfo{}, domain.ErrNotFound
	}
	return info, nil
}

func (c *catalog) FindCustomIntents(_ context.Context, category, owner string) ([]domain.IntentDef, error) {
	if c.intentsErr != nil {
		return nil, c.intentsErr
	}
	var out []domain.IntentDef
	for _, in := range c.intents {
		if in.CategoryCode == category && in.OwnerID == owner {
			out = append(out, in)
		}
	}
	return out, nil
}

func (c *catalog) FindByName(_ context.Context, name, owner string) (domain.IntentDef, error) {
	return domain.IntentDef{}, domain.ErrNotFound
}

func validLaunch() domain.LaunchInfo {
	return domain.LaunchInfo{
		BotID:        "bot-1",
		OwnerID:      "owner-1",
		CategoryCode: "RESTAURANT",
		ModelRef:     "support.yaml",
		TokenizerRef: nlp.TokenizerSimple,
		Settings: map[string]any{
			"nlpIntentMatcher": map[string]any{"minMatchScore": "0.6", "maybeMatchScore": 0.3},
		},
	}
}

func newBuilder(c *catalog) *botconfig.Builder {
	return botconfig.NewBuilder(c, c, nlp.StaticSource{"support.yaml": []byte(model)}, nlp.NewLoader())
}

func TestBuilder_Build(t *testing.T) {
	c := &catalog{
		launch: map[string]domain.LaunchInfo{"bot-1": validLaunch()},
		intents: []domain.IntentDef{
			{Name: "Hours", OwnerID: "owner-1", CategoryCode: "RESTAURANT"},
			{Name: "Menu", OwnerID: "owner-1", CategoryCode: "RESTAURANT"},
			{Name: "Weather", OwnerID: "owner-1", CategoryCode: "TRAVEL"},
		},
	}

	cfg, err := newBuilder(c).Build(context.Background(), "bot-1")
	require.NoError(t, err)
	assert.Equal(t, "bot-1", cfg.BotID())
	assert.Equal(t, "owner-1", cfg.OwnerID())
	assert.Equal(t, 0.6, cfg.MinMatchScore())
	assert.Equal(t, 0.3, cfg.MaybeMatchScore())
	assert.Equal(t, domain.DefaultLocale, cfg.Locale())
	assert.Len(t, cfg.CustomIntents(), 2)
	_, ok := cfg.CustomIntent("Weather")
	assert.False(t, ok)

	scores, err := cfg.Classifier().Categorize(context.Background(), cfg.Tokenizer().Tokenize("when are you open"))
	require.NoError(t, err)
	require.NotEmpty(t, scores)
	assert.Equal(t, "Hours", scores[0].Category)
}

func TestBuilder_Defaults(t *testing.T) {
	info := validLaunch()
	info.Settings = nil
	c := &catalog{launch: map[string]domain.LaunchInfo{"bot-1": info}}

	cfg, err := newBuilder(c).Build(context.Background(), "bot-1")
	require.NoError(t, err)
	assert.Equal(t, botconfig.DefaultMinMatchScore, cfg.MinMatchScore())
	assert.Equal(t, float64(botconfig.DefaultMaybeMatchScore), cfg.MaybeMatchScore())
}

func TestBuilder_FailureCauses(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*catalog)
		cause    domain.LoadCause
		sentinel error
	}{
		{
			name:     "unknown bot",
			mutate:   func(c *catalog) { delete(c.launch, "bot-1") },
			cause:    domain.CauseLaunchInfo,
			sentinel: domain.ErrConfigNotFound,
		},
		{
			name:     "store down",
			mutate:   func(c *catalog) { c.launchErr = errors.New("connection refused") },
			cause:    domain.CauseStore,
			sentinel: domain.ErrConfigLoadFailure,
		},
		{
			name: "bad settings",
			mutate: func(c *catalog) {
				info := c.launch["bot-1"]
				info.Settings = map[string]any{"nlpIntentMatcher": map[string]any{"minMatchScore": "high"}}
				c.launch["bot-1"] = info
			},
			cause:    domain.CauseSettings,
			sentinel: domain.ErrConfigLoadFailure,
		},
		{
			name: "no tokenizer",
			mutate: func(c *catalog) {
				info := c.launch["bot-1"]
				info.TokenizerRef = ""
				c.launch["bot-1"] = info
			},
			cause:    domain.CauseTokenizer,
			sentinel: domain.ErrConfigLoadFailure,
		},
		{
			name: "tokenizer override is unknown",
			mutate: func(c *catalog) {
				info := c.launch["bot-1"]
				info.Settings = map[string]any{"tokenizerModel": "en-token.bin"}
				c.launch["bot-1"] = info
			},
			cause:    domain.CauseTokenizer,
			sentinel: domain.ErrConfigLoadFailure,
		},
		{
			name: "missing model",
			mutate: func(c *catalog) {
				info := c.launch["bot-1"]
				info.ModelRef = "gone.yaml"
				c.launch["bot-1"] = info
			},
			cause:    domain.CauseModel,
			sentinel: domain.ErrConfigLoadFailure,
		},
		{
			name:     "intents unavailable",
			mutate:   func(c *catalog) { c.intentsErr = errors.New("timeout reading intents") },
			cause:    domain.CauseIntents,
			sentinel: domain.ErrConfigLoadFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &catalog{launch: map[string]domain.LaunchInfo{"bot-1": validLaunch()}}
			tt.mutate(c)

			_, err := newBuilder(c).Build(context.Background(), "bot-1")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)
			var ce *domain.ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.cause, ce.Cause)
			assert.Equal(t, "bot-1", ce.BotID)
		})
	}
}

func TestBuilder_DeadlineIsATimeout(t *testing.T) {
	c := &catalog{launch: map[string]domain.LaunchInfo{"bot-1": validLaunch()}}
	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()

	_, err := newBuilder(c).Build(ctx, "bot-1")
	var ce *domain.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, domain.CauseTimeout, ce.Cause)
}
