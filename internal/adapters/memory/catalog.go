package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/bbkanego/seerbot/pkg/domain"
)

type intentKey struct {
	owner string
	name  string
}

// Catalog implements ports.CatalogStore.
type Catalog struct {
	mu       sync.RWMutex
	launches map[string]domain.LaunchInfo
	intents  map[intentKey]domain.IntentDef
	order    []intentKey
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		launches: make(map[string]domain.LaunchInfo),
		intents:  make(map[intentKey]domain.IntentDef),
	}
}

// SaveLaunchInfo stores or replaces the launch info of info.BotID.
func (c *Catalog) SaveLaunchInfo(ctx context.Context, info domain.LaunchInfo) error {
	if info.BotID == "" {
		return fmt.Errorf("%w: launch info without bot id", domain.ErrInvalidRequest)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.launches[info.BotID] = cloneLaunch(info)
	return nil
}

// SaveIntent stores or replaces an intent, keyed by owner and name.
func (c *Catalog) SaveIntent(ctx context.Context, intent domain.IntentDef) error {
	if intent.Name == "" {
		return fmt.Errorf("%w: intent without name", domain.ErrInvalidRequest)
	}
	key := intentKey{owner: intent.OwnerID, name: intent.Name}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.intents[key]; !ok {
		c.order = append(c.order, key)
	}
	c.intents[key] = cloneIntent(intent)
	return nil
}

// FindByBotID returns the launch info of botID.
func (c *Catalog) FindByBotID(ctx context.Context, botID string) (domain.LaunchInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.launches[botID]
	if !ok {
		return domain.LaunchInfo{}, fmt.Errorf("launch info %s: %w", botID, domain.ErrNotFound)
	}
	return cloneLaunch(info), nil
}

// FindCustomIntents lists the owner's intents of a category in insertion order.
func (c *Catalog) FindCustomIntents(ctx context.Context, categoryCode, ownerID string) ([]domain.IntentDef, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []domain.IntentDef
	for _, key := range c.order {
		in := c.intents[key]
		if in.OwnerID == ownerID && in.CategoryCode == categoryCode {
			out = append(out, cloneIntent(in))
		}
	}
	return out, nil
}

// FindByName returns the owner's intent called name.
func (c *Catalog) FindByName(ctx context.Context, name, ownerID string) (domain.IntentDef, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	in, ok := c.intents[intentKey{owner: ownerID, name: name}]
	if !ok {
		return domain.IntentDef{}, fmt.Errorf("intent %s: %w", name, domain.ErrNotFound)
	}
	return cloneIntent(in), nil
}

func cloneLaunch(info domain.LaunchInfo) domain.LaunchInfo {
	info.AllowedOrigins = slices.Clone(info.AllowedOrigins)
	if info.Settings != nil {
		settings := make(map[string]any, len(info.Settings))
		for k, v := range info.Settings {
			settings[k] = v
		}
		info.Settings = settings
	}
	return info
}

func cloneIntent(in domain.IntentDef) domain.IntentDef {
	in.Responses = slices.Clone(in.Responses)
	return in
}
