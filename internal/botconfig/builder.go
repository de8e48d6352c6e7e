package botconfig

import (
	"context"
	"errors"
	"fmt"

	"github.com/bbkanego/seerbot/pkg/domain"
	"github.com/bbkanego/seerbot/pkg/ports"
)

// Builder assembles configs from the catalog stores and the model source.
type Builder struct {
	launch  ports.LaunchInfoStore
	intents ports.IntentStore
	models  ports.ModelSource
	loader  ports.ModelLoader
}

// NewBuilder creates a builder.
func NewBuilder(launch ports.LaunchInfoStore, intents ports.IntentStore, models ports.ModelSource, loader ports.ModelLoader) *Builder {
	return &Builder{launch: launch, intents: intents, models: models, loader: loader}
}

// Build loads the bot's launch info, settings, tokenizer, classifier and custom
// intents. Every failure is a *domain.ConfigError naming the failed step.
func (b *Builder) Build(ctx context.Context, botID string) (*Config, error) {
	fail := func(cause domain.LoadCause, err error) (*Config, error) {
		if errors.Is(err, context.DeadlineExceeded) {
			cause = domain.CauseTimeout
		}
		return nil, &domain.ConfigError{BotID: botID, Cause: cause, Err: err}
	}

	info, err := b.launch.FindByBotID(ctx, botID)
	if errors.Is(err, domain.ErrNotFound) {
		return fail(domain.CauseLaunchInfo, err)
	}
	if err != nil {
		return fail(domain.CauseStore, err)
	}

	settings, err := DecodeSettings(info.Settings)
	if err != nil {
		return fail(domain.CauseSettings, err)
	}

	tokRef := info.TokenizerRef
	if settings.TokenizerModel != "" {
		tokRef = settings.TokenizerModel
	}
	if tokRef == "" {
		return fail(domain.CauseTokenizer, errors.New("no tokenizer model defined"))
	}
	tok, err := b.loader.LoadTokenizer(ctx, tokRef)
	if err != nil {
		return fail(domain.CauseTokenizer, err)
	}

	if info.ModelRef == "" {
		return fail(domain.CauseModel, errors.New("no trained model defined"))
	}
	data, err := b.models.Fetch(ctx, info.ModelRef)
	if err != nil {
		return fail(domain.CauseModel, fmt.Errorf("fetch %s: %w", info.ModelRef, err))
	}
	clf, err := b.loader.LoadClassifier(ctx, data)
	if err != nil {
		return fail(domain.CauseModel, fmt.Errorf("load %s: %w", info.ModelRef, err))
	}

	intents, err := b.intents.FindCustomIntents(ctx, info.CategoryCode, info.OwnerID)
	if err != nil {
		return fail(domain.CauseIntents, err)
	}

	if err := ctx.Err(); err != nil {
		return fail(domain.CauseTimeout, err)
	}
	return New(info, tok, clf, intents, settings), nil
}
