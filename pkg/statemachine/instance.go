package statemachine

import (
	"context"
	"fmt"
	"time"

	"github.com/bbkanego/seerbot/pkg/domain"
)

// Attributes is the session-scoped store an instance's actions may read and write.
type Attributes interface {
	Attribute(name string) (any, bool)
	SetAttribute(name string, value any)
	RemoveAttribute(name string)
}

// Instance is a live conversation over a Template.
// It is not safe for concurrent use; the owning session serializes access.
type Instance struct {
	tpl     *Template
	current StateID
	vars    Vars
	stopped bool
	history []StateID
	attrs   Attributes
	hooks   domain.LifecycleHooks
}

// Option configures an Instance.
type Option func(*Instance)

// WithAttributes exposes a session attribute store to entry actions.
func WithAttributes(attrs Attributes) Option {
	return func(i *Instance) {
		i.attrs = attrs
	}
}

// WithHooks registers observability hooks.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(i *Instance) {
		i.hooks = hooks
	}
}

func newInstance(tpl *Template, opts []Option) *Instance {
	inst := &Instance{tpl: tpl, vars: make(Vars)}
	for _, opt := range opts {
		opt(inst)
	}
	return inst
}

// Start creates an instance at the template's initial state and runs its entry action.
func Start(ctx context.Context, tpl *Template, opts ...Option) *Instance {
	inst := newInstance(tpl, opts)
	inst.enter(ctx, tpl.initial, "")
	return inst
}

// Template returns the template the instance interprets.
func (i *Instance) Template() *Template { return i.tpl }

// Current returns the current state.
func (i *Instance) Current() StateID { return i.current }

// Vars returns the live variables. Entry actions mutate them directly.
func (i *Instance) Vars() Vars { return i.vars }

// History returns the regular states entered so far, in order.
func (i *Instance) History() []StateID {
	out := make([]StateID, len(i.history))
	copy(out, i.history)
	return out
}

// Attributes returns the session attribute store, or nil.
func (i *Instance) Attributes() Attributes { return i.attrs }

// Stop marks the instance as finished.
func (i *Instance) Stop() { i.stopped = true }

// Stopped reports whether Stop was called.
func (i *Instance) Stopped() bool { return i.stopped }

// IsTerminal reports whether the instance reached a terminal state or was stopped.
func (i *Instance) IsTerminal() bool {
	return i.stopped || i.tpl.IsTerminal(i.current)
}

// Advance applies one event to the instance.
//
// The quit keyword jumps to the quit state. Otherwise the external transition of the
// current state is taken; landing on a choice point evaluates its branches against the
// same input until a regular state is reached, whose entry action then runs.
func (i *Instance) Advance(ctx context.Context, input string) error {
	if i.IsTerminal() {
		return fmt.Errorf("%w: %s at %q", ErrInstanceStopped, i.tpl.name, i.current)
	}

	if i.tpl.isQuit(input) {
		if err := i.Reset(ctx, i.tpl.quitState); err != nil {
			return err
		}
		i.runEntry(ctx, i.tpl.quitState, input)
		i.Stop()
		return nil
	}

	next, ok := i.tpl.outgoing[i.current]
	if !ok {
		return fmt.Errorf("%w %q in %s", ErrNoTransition, i.current, i.tpl.name)
	}

	target, err := i.tpl.resolve(next, input, i.vars)
	if err != nil {
		return err
	}

	i.enter(ctx, target, input)
	return nil
}

// Reset force-jumps to toState, discarding variables except the carried keys.
// Entry actions do not run.
func (i *Instance) Reset(ctx context.Context, toState StateID, carry ...string) error {
	if !i.tpl.Has(toState) || i.tpl.IsChoice(toState) {
		return fmt.Errorf("%w %q in %s", ErrUnknownState, toState, i.tpl.name)
	}

	kept := make(Vars, len(carry))
	for _, k := range carry {
		if v, ok := i.vars[k]; ok {
			kept[k] = v
		}
	}
	i.vars = kept
	i.current = toState
	i.history = append(i.history, toState)
	i.emitEnter(ctx, toState)
	return nil
}

func (i *Instance) enter(ctx context.Context, id StateID, input string) {
	i.current = id
	i.history = append(i.history, id)
	i.emitEnter(ctx, id)
	i.runEntry(ctx, id, input)
}

func (i *Instance) runEntry(ctx context.Context, id StateID, input string) {
	if action := i.tpl.entry[id]; action != nil {
		action(ctx, i, input)
	}
}

func (i *Instance) emitEnter(ctx context.Context, id StateID) {
	if i.hooks.OnStateEnter == nil {
		return
	}
	i.hooks.OnStateEnter(ctx, &domain.StateEvent{
		EventBase:    domain.EventBase{Timestamp: time.Now(), Type: domain.EventStateEnter},
		Conversation: i.tpl.name,
		State:        string(id),
	})
}

// Snapshot captures the instance for persistence. Intent is filled in by the session.
func (i *Instance) Snapshot() domain.ConversationSnapshot {
	vars := make(map[string]any, len(i.vars))
	for k, v := range i.vars {
		vars[k] = v
	}
	history := make([]string, len(i.history))
	for n, s := range i.history {
		history[n] = string(s)
	}
	return domain.ConversationSnapshot{
		Template: i.tpl.name,
		State:    string(i.current),
		Vars:     vars,
		Stopped:  i.stopped,
		History:  history,
	}
}

// Restore rebuilds an instance from a snapshot without running entry actions.
func Restore(tpl *Template, snap domain.ConversationSnapshot, opts ...Option) (*Instance, error) {
	if snap.Template != "" && snap.Template != tpl.name {
		return nil, fmt.Errorf("snapshot of %q cannot restore into %q", snap.Template, tpl.name)
	}
	state := StateID(snap.State)
	if !tpl.Has(state) || tpl.IsChoice(state) {
		return nil, fmt.Errorf("%w %q in %s", ErrUnknownState, state, tpl.name)
	}

	inst := newInstance(tpl, opts)
	inst.current = state
	inst.stopped = snap.Stopped
	for k, v := range snap.Vars {
		inst.vars[k] = v
	}
	for _, s := range snap.History {
		inst.history = append(inst.history, StateID(s))
	}
	return inst, nil
}
