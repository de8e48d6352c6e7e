package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bbkanego/seerbot/internal/adapters/file"
	"github.com/bbkanego/seerbot/internal/botconfig"
	"github.com/bbkanego/seerbot/internal/config"
	"github.com/bbkanego/seerbot/internal/nlp"
	"github.com/bbkanego/seerbot/pkg/registry"
)

// Validate checks everything a deployment loads lazily, so mistakes surface before
// the first visitor: every conversation template, the fixture file, and the model
// and settings of each fixture bot. Models served over http(s) are not fetched.
// Each check writes one line to out; the returned error joins every failure.
func Validate(ctx context.Context, cfg *config.Config, templates *registry.Registry, out io.Writer) error {
	var errs []error
	report := func(subject string, err error) {
		if err != nil {
			fmt.Fprintf(out, "FAIL %s: %v\n", subject, err)
			errs = append(errs, fmt.Errorf("%s: %w", subject, err))
			return
		}
		fmt.Fprintf(out, "ok   %s\n", subject)
	}

	report("config", cfg.Validate())

	for _, intent := range templates.Intents() {
		_, err := templates.Template(intent)
		report("conversation "+intent, err)
	}

	if cfg.Fixtures == "" {
		return errors.Join(errs...)
	}
	fx, err := file.LoadFixtures(cfg.Fixtures)
	report("fixtures "+cfg.Fixtures, err)
	if err != nil {
		return errors.Join(errs...)
	}

	models := nlp.NewFileSource(cfg.NLP.ModelDir)
	loader := nlp.NewLoader()
	for _, bot := range fx.Bots {
		settings, err := botconfig.DecodeSettings(bot.Settings)
		if err == nil {
			err = checkModel(ctx, models, loader, bot.ModelRef, tokenizerRef(bot.TokenizerRef, settings))
		}
		report("bot "+bot.BotID, err)
	}
	return errors.Join(errs...)
}

func tokenizerRef(ref string, s botconfig.Settings) string {
	if s.TokenizerModel != "" {
		return s.TokenizerModel
	}
	return ref
}

func checkModel(ctx context.Context, src *nlp.FileSource, loader *nlp.Loader, modelRef, tokRef string) error {
	if _, err := loader.LoadTokenizer(ctx, tokRef); err != nil {
		return err
	}
	if strings.HasPrefix(modelRef, "http://") || strings.HasPrefix(modelRef, "https://") {
		return nil
	}
	data, err := src.Fetch(ctx, modelRef)
	if err != nil {
		return err
	}
	_, err = loader.LoadClassifier(ctx, data)
	return err
}
