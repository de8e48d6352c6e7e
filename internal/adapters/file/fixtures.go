package file

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/bbkanego/seerbot/pkg/domain"
	"github.com/bbkanego/seerbot/pkg/ports"
	"gopkg.in/yaml.v3"
)

// Fixtures is the YAML seed of a catalog.
//
//	bots:
//	  - bot_id: luigis
//	    owner_id: luigi
//	    category_code: RESTAURANT
//	    model_ref: models/restaurant.yaml
//	    tokenizer_ref: simple
//	intents:
//	  - name: Hours
//	    owner_id: luigi
//	    category_code: RESTAURANT
//	    responses:
//	      - {locale: en, text: "We open at 9."}
type Fixtures struct {
	Bots    []domain.LaunchInfo `yaml:"bots"`
	Intents []domain.IntentDef  `yaml:"intents"`
}

// ParseFixtures decodes and checks a fixture document.
func ParseFixtures(data []byte) (Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Fixtures{}, fmt.Errorf("failed to parse fixtures: %w", err)
	}
	if err := f.Validate(); err != nil {
		return Fixtures{}, err
	}
	return f, nil
}

// LoadFixtures reads and parses the fixture file at path.
func LoadFixtures(path string) (Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixtures{}, fmt.Errorf("failed to read fixtures: %w", err)
	}
	return ParseFixtures(data)
}

// Validate reports every record that lacks its key fields.
func (f Fixtures) Validate() error {
	var errs []error
	seen := map[string]bool{}
	for i, b := range f.Bots {
		switch {
		case b.BotID == "":
			errs = append(errs, fmt.Errorf("bots[%d]: bot_id is required", i))
		case seen[b.BotID]:
			errs = append(errs, fmt.Errorf("bots[%d]: duplicate bot_id %q", i, b.BotID))
		}
		seen[b.BotID] = true
		if b.OwnerID == "" {
			errs = append(errs, fmt.Errorf("bots[%d]: owner_id is required", i))
		}
	}
	for i, in := range f.Intents {
		if in.Name == "" {
			errs = append(errs, fmt.Errorf("intents[%d]: name is required", i))
		}
		if in.OwnerID == "" {
			errs = append(errs, fmt.Errorf("intents[%d]: owner_id is required", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrInvalidRequest, errors.Join(errs...))
	}
	return nil
}

// Seed writes every bot and intent to w.
func (f Fixtures) Seed(ctx context.Context, w ports.CatalogWriter) error {
	for _, b := range f.Bots {
		if err := w.SaveLaunchInfo(ctx, b); err != nil {
			return fmt.Errorf("failed to seed bot %s: %w", b.BotID, err)
		}
	}
	for _, in := range f.Intents {
		if err := w.SaveIntent(ctx, in); err != nil {
			return fmt.Errorf("failed to seed intent %s: %w", in.Name, err)
		}
	}
	return nil
}
