// Package registry maps conversation-starter intents to conversation templates.
//
// Templates are declared in code and registered under the intent that starts them.
// A template is built on first use and cached; a template that fails validation is
// reported to every caller and never cached.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/bbkanego/seerbot/pkg/conversations/reservation"
	"github.com/bbkanego/seerbot/pkg/domain"
	"github.com/bbkanego/seerbot/pkg/statemachine"
)

// Factory declares a template.
type Factory func() (*statemachine.Template, error)

// Catalog lists the templates shipped with the module, by template name.
var Catalog = map[string]Factory{
	reservation.Name: reservation.New,
}

// Registry manages the available conversations.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	built     map[string]*statemachine.Template
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		built:     make(map[string]*statemachine.Template),
	}
}

// Register binds intent to a template factory.
// If the intent is already bound, the binding is overwritten.
func (r *Registry) Register(intent string, fn Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[intent] = fn
	delete(r.built, intent)
}

// Bind registers the catalog template named name under intent.
func (r *Registry) Bind(intent, name string) error {
	fn, ok := Catalog[name]
	if !ok {
		return fmt.Errorf("%w: no template named %q", domain.ErrUnknownConversation, name)
	}
	r.Register(intent, fn)
	return nil
}

// Has reports whether intent starts a conversation.
func (r *Registry) Has(intent string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[intent]
	return ok
}

// Template returns the built template bound to intent.
func (r *Registry) Template(intent string) (*statemachine.Template, error) {
	r.mu.RLock()
	tpl, ok := r.built[intent]
	fn, registered := r.factories[intent]
	r.mu.RUnlock()

	if ok {
		return tpl, nil
	}
	if !registered {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownConversation, intent)
	}

	tpl, err := fn()
	if err != nil {
		return nil, fmt.Errorf("conversation %q: %w", intent, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.built[intent]; ok {
		return cached, nil
	}
	r.built[intent] = tpl
	return tpl, nil
}

// Intents returns the registered starter intents, sorted.
func (r *Registry) Intents() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for name := range r.factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ParseBindings reads "Intent=template,Other=template" into a map.
func ParseBindings(s string) (map[string]string, error) {
	out := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		intent, name, ok := strings.Cut(pair, "=")
		intent, name = strings.TrimSpace(intent), strings.TrimSpace(name)
		if !ok || intent == "" || name == "" {
			return nil, fmt.Errorf("invalid conversation binding %q", pair)
		}
		out[intent] = name
	}
	return out, nil
}

// FromBindings builds a registry from intent to catalog-name bindings.
func FromBindings(bindings map[string]string) (*Registry, error) {
	r := NewRegistry()
	for intent, name := range bindings {
		if err := r.Bind(intent, name); err != nil {
			return nil, err
		}
	}
	return r, nil
}
