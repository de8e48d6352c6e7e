package statemachine

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInstanceStopped is returned when advancing an instance that already ended.
	ErrInstanceStopped = errors.New("conversation instance is stopped")

	// ErrNoTransition is returned when the current state has no outgoing transition.
	ErrNoTransition = errors.New("no transition from state")

	// ErrUnknownState is returned when a snapshot or reset names a state the template lacks.
	ErrUnknownState = errors.New("unknown state")

	// ErrChoiceLoop is returned when choice points route into each other without end.
	ErrChoiceLoop = errors.New("choice points form a loop")
)

// ValidationError lists every problem found while building a template.
type ValidationError struct {
	Template string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("template %q is invalid:\n- %s", e.Template, strings.Join(e.Problems, "\n- "))
}

// Builder declares a template.
type Builder struct {
	tpl Template
	err []string
}

// New starts the declaration of a template.
func New(name string) *Builder {
	return &Builder{tpl: Template{
		name:      name,
		known:     make(map[StateID]bool),
		outgoing:  make(map[StateID]StateID),
		choices:   make(map[StateID][]Branch),
		terminals: make(map[StateID]bool),
		entry:     make(map[StateID]Action),
	}}
}

// State declares states. Other builder methods declare the states they mention.
func (b *Builder) State(ids ...StateID) *Builder {
	for _, id := range ids {
		if id == "" {
			b.err = append(b.err, "empty state id")
			continue
		}
		if !b.tpl.known[id] {
			b.tpl.known[id] = true
			b.tpl.states = append(b.tpl.states, id)
		}
	}
	return b
}

// Initial sets the initial state.
func (b *Builder) Initial(id StateID) *Builder {
	b.State(id)
	b.tpl.initial = id
	return b
}

// Transition adds the single external transition leaving from.
func (b *Builder) Transition(from, to StateID) *Builder {
	b.State(from, to)
	if prev, ok := b.tpl.outgoing[from]; ok {
		b.err = append(b.err, fmt.Sprintf("state %q already transitions to %q", from, prev))
		return b
	}
	b.tpl.outgoing[from] = to
	b.tpl.transitions = append(b.tpl.transitions, Transition{From: from, To: to})
	return b
}

// Choice declares id as a choice point with ordered branches.
func (b *Builder) Choice(id StateID, branches ...Branch) *Builder {
	b.State(id)
	for _, br := range branches {
		b.State(br.Target)
	}
	if _, dup := b.tpl.choices[id]; dup {
		b.err = append(b.err, fmt.Sprintf("choice %q declared twice", id))
		return b
	}
	b.tpl.choices[id] = append([]Branch(nil), branches...)
	return b
}

// Terminal marks states as terminal.
func (b *Builder) Terminal(ids ...StateID) *Builder {
	b.State(ids...)
	for _, id := range ids {
		b.tpl.terminals[id] = true
	}
	return b
}

// OnEntry registers the entry action of a state.
func (b *Builder) OnEntry(id StateID, action Action) *Builder {
	b.State(id)
	b.tpl.entry[id] = action
	return b
}

// Quit makes id a terminal state reachable from any state when the input equals
// one of keywords, compared case-insensitively.
func (b *Builder) Quit(id StateID, keywords ...string) *Builder {
	b.Terminal(id)
	b.tpl.quitState = id
	b.tpl.quitWords = append(b.tpl.quitWords, keywords...)
	return b
}

// Build validates the declaration and returns the template.
func (b *Builder) Build() (*Template, error) {
	problems := append([]string(nil), b.err...)
	t := b.tpl

	if t.name == "" {
		problems = append(problems, "template name is empty")
	}
	if t.initial == "" {
		problems = append(problems, "initial state is not set")
	} else if t.IsChoice(t.initial) {
		problems = append(problems, fmt.Sprintf("initial state %q is a choice point", t.initial))
	}

	for _, id := range t.states {
		branches, isChoice := t.choices[id]
		_, hasNext := t.outgoing[id]

		switch {
		case isChoice:
			if hasNext {
				problems = append(problems, fmt.Sprintf("choice %q also declares an external transition", id))
			}
			if t.terminals[id] {
				problems = append(problems, fmt.Sprintf("choice %q is marked terminal", id))
			}
			problems = append(problems, checkBranches(id, branches)...)
		case t.terminals[id]:
			if hasNext {
				problems = append(problems, fmt.Sprintf("terminal state %q declares a transition", id))
			}
		case !hasNext:
			problems = append(problems, fmt.Sprintf("state %q is neither terminal nor has a transition", id))
		}
	}

	if t.quitState != "" && len(t.quitWords) == 0 {
		problems = append(problems, fmt.Sprintf("quit state %q has no keywords", t.quitState))
	}

	for id := range t.choices {
		if err := t.checkChoiceLoop(id); err != nil {
			problems = append(problems, err.Error())
		}
	}

	if len(problems) > 0 {
		return nil, &ValidationError{Template: t.name, Problems: problems}
	}

	built := t
	return &built, nil
}

// MustBuild is Build that panics on error. Use it for templates declared in code.
func (b *Builder) MustBuild() *Template {
	t, err := b.Build()
	if err != nil {
		panic(err)
	}
	return t
}

func checkBranches(id StateID, branches []Branch) []string {
	if len(branches) == 0 {
		return []string{fmt.Sprintf("choice %q has no branches", id)}
	}
	var problems []string
	for i, br := range branches {
		last := i == len(branches)-1
		if last && br.Guard != nil {
			problems = append(problems, fmt.Sprintf("choice %q has no default branch", id))
		}
		if !last && br.Guard == nil {
			problems = append(problems, fmt.Sprintf("choice %q has a default branch before position %d", id, len(branches)))
		}
	}
	return problems
}

// checkChoiceLoop walks choice-to-choice edges along every branch and reports loops.
func (t *Template) checkChoiceLoop(start StateID) error {
	seen := map[StateID]bool{}
	var walk func(id StateID) error
	walk = func(id StateID) error {
		if !t.IsChoice(id) {
			return nil
		}
		if seen[id] {
			return fmt.Errorf("%w: through %q", ErrChoiceLoop, id)
		}
		seen[id] = true
		defer delete(seen, id)
		for _, br := range t.choices[id] {
			if err := walk(br.Target); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(start)
}
