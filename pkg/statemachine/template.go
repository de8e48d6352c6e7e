package statemachine

import (
	"context"
	"fmt"
	"strings"
)

// StateID names a state of a template.
type StateID string

// Vars holds the variables of an instance.
type Vars map[string]any

// Guard decides whether a choice branch is taken. It must be a pure function of its arguments.
type Guard func(input string, vars Vars) bool

// Action runs when an instance enters a state.
type Action func(ctx context.Context, inst *Instance, input string)

// Branch is one guarded edge of a choice point. A nil Guard marks the default branch.
type Branch struct {
	Guard  Guard
	Target StateID
	Label  string
}

// When builds a guarded branch.
func When(guard Guard, target StateID) Branch {
	return Branch{Guard: guard, Target: target}
}

// Otherwise builds the mandatory default branch.
func Otherwise(target StateID) Branch {
	return Branch{Target: target, Label: "otherwise"}
}

// Labeled returns a copy of b with a human-readable label, used by graph exports.
func (b Branch) Labeled(label string) Branch {
	b.Label = label
	return b
}

// Transition is an external edge taken when an instance advances.
type Transition struct {
	From StateID
	To   StateID
}

// Template is an immutable, validated conversation definition.
type Template struct {
	name        string
	initial     StateID
	states      []StateID
	known       map[StateID]bool
	transitions []Transition
	outgoing    map[StateID]StateID
	choices     map[StateID][]Branch
	terminals   map[StateID]bool
	entry       map[StateID]Action
	quitState   StateID
	quitWords   []string
}

// Name returns the template name.
func (t *Template) Name() string { return t.name }

// Initial returns the initial state.
func (t *Template) Initial() StateID { return t.initial }

// States returns the states in declaration order.
func (t *Template) States() []StateID {
	out := make([]StateID, len(t.states))
	copy(out, t.states)
	return out
}

// Transitions returns the external transitions in declaration order.
func (t *Template) Transitions() []Transition {
	out := make([]Transition, len(t.transitions))
	copy(out, t.transitions)
	return out
}

// Branches returns the ordered branches of a choice point, or nil.
func (t *Template) Branches(id StateID) []Branch {
	b := t.choices[id]
	if b == nil {
		return nil
	}
	out := make([]Branch, len(b))
	copy(out, b)
	return out
}

// Has reports whether id is a state of the template.
func (t *Template) Has(id StateID) bool { return t.known[id] }

// IsChoice reports whether id is a choice point.
func (t *Template) IsChoice(id StateID) bool {
	_, ok := t.choices[id]
	return ok
}

// IsTerminal reports whether id is a terminal state.
func (t *Template) IsTerminal(id StateID) bool { return t.terminals[id] }

// QuitState returns the quit state, or "" when the template has none.
func (t *Template) QuitState() StateID { return t.quitState }

// Next returns the target of the external transition leaving from.
func (t *Template) Next(from StateID) (StateID, bool) {
	to, ok := t.outgoing[from]
	return to, ok
}

func (t *Template) isQuit(input string) bool {
	if t.quitState == "" {
		return false
	}
	input = strings.TrimSpace(input)
	for _, w := range t.quitWords {
		if strings.EqualFold(input, w) {
			return true
		}
	}
	return false
}

// resolve follows choice points starting at target until it lands on a regular state.
func (t *Template) resolve(target StateID, input string, vars Vars) (StateID, error) {
	for hops := 0; ; hops++ {
		branches, ok := t.choices[target]
		if !ok {
			return target, nil
		}
		if hops > len(t.states) {
			return "", fmt.Errorf("%w: at %q", ErrChoiceLoop, target)
		}
		target = pick(branches, input, vars)
	}
}

func pick(branches []Branch, input string, vars Vars) StateID {
	for _, b := range branches {
		if b.Guard == nil || b.Guard(input, vars) {
			return b.Target
		}
	}
	// Unreachable for validated templates: the last branch is always a default.
	return branches[len(branches)-1].Target
}
