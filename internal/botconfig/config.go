// Package botconfig builds and caches the runtime configuration of each bot.
//
// A Config bundles a bot's launch info, tokenizer, trained classifier, custom
// intents and matcher thresholds. Builder assembles one from the stores; Cache
// keeps built configs in an LRU with idle expiry and coalesces concurrent builds.
package botconfig

import (
	"fmt"
	"sort"

	"github.com/bbkanego/seerbot/pkg/domain"
	"github.com/bbkanego/seerbot/pkg/ports"
	"github.com/mitchellh/mapstructure"
)

const (
	// DefaultMinMatchScore applies when a bot does not configure its threshold.
	DefaultMinMatchScore = 0.75
	// DefaultMaybeMatchScore disables the maybe tier.
	DefaultMaybeMatchScore = -1
)

// Settings is the typed view of LaunchInfo.Settings.
type Settings struct {
	Matcher        MatcherSettings `mapstructure:"nlpIntentMatcher"`
	TokenizerModel string          `mapstructure:"tokenizerModel"`
}

// MatcherSettings holds the thresholds of the intent matcher. Nil means default.
type MatcherSettings struct {
	MinMatchScore   *float64 `mapstructure:"minMatchScore"`
	MaybeMatchScore *float64 `mapstructure:"maybeMatchScore"`
}

// DecodeSettings decodes a free-form settings map. Numbers given as strings are accepted.
func DecodeSettings(raw map[string]any) (Settings, error) {
	var s Settings
	if len(raw) == 0 {
		return s, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &s,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return s, err
	}
	if err := dec.Decode(raw); err != nil {
		return s, err
	}
	if m := s.Matcher.MinMatchScore; m != nil && (*m < 0 || *m > 1) {
		return s, fmt.Errorf("minMatchScore %v is outside [0, 1]", *m)
	}
	return s, nil
}

// Config is the immutable runtime configuration of one bot.
type Config struct {
	launch     domain.LaunchInfo
	tokenizer  ports.Tokenizer
	classifier ports.Classifier
	intents    map[string]domain.IntentDef
	minScore   float64
	maybeScore float64
}

// New assembles a Config. Intents are keyed by name; later duplicates win.
func New(launch domain.LaunchInfo, tok ports.Tokenizer, clf ports.Classifier, intents []domain.IntentDef, s Settings) *Config {
	c := &Config{
		launch:     launch,
		tokenizer:  tok,
		classifier: clf,
		intents:    make(map[string]domain.IntentDef, len(intents)),
		minScore:   DefaultMinMatchScore,
		maybeScore: DefaultMaybeMatchScore,
	}
	for _, in := range intents {
		c.intents[in.Name] = in
	}
	if v := s.Matcher.MinMatchScore; v != nil {
		c.minScore = *v
	}
	if v := s.Matcher.MaybeMatchScore; v != nil {
		c.maybeScore = *v
	}
	return c
}

func (c *Config) BotID() string        { return c.launch.BotID }
func (c *Config) OwnerID() string      { return c.launch.OwnerID }
func (c *Config) CategoryCode() string { return c.launch.CategoryCode }

// LaunchInfo returns the launch info with its own copy of AllowedOrigins.
func (c *Config) LaunchInfo() domain.LaunchInfo {
	l := c.launch
	l.AllowedOrigins = append([]string(nil), c.launch.AllowedOrigins...)
	return l
}

func (c *Config) Tokenizer() ports.Tokenizer   { return c.tokenizer }
func (c *Config) Classifier() ports.Classifier { return c.classifier }
func (c *Config) MinMatchScore() float64       { return c.minScore }
func (c *Config) MaybeMatchScore() float64     { return c.maybeScore }

// Locale returns the bot's locale, or domain.DefaultLocale.
func (c *Config) Locale() string {
	if c.launch.Locale == "" {
		return domain.DefaultLocale
	}
	return c.launch.Locale
}

// CustomIntent returns the custom intent named name.
func (c *Config) CustomIntent(name string) (domain.IntentDef, bool) {
	in, ok := c.intents[name]
	return in, ok
}

// CustomIntents returns the custom intents sorted by name.
func (c *Config) CustomIntents() []domain.IntentDef {
	out := make([]domain.IntentDef, 0, len(c.intents))
	for _, in := range c.intents {
		out = append(out, in)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
