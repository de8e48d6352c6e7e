// Package reservation declares the table reservation conversation.
//
// The visitor is asked for a guest count and then for a time. Each answer passes
// through a choice point whose invalid branch loops back to re-ask. Typing "quit"
// at any point ends the conversation.
package reservation

import (
	"context"
	"strconv"
	"strings"

	"github.com/bbkanego/seerbot/pkg/statemachine"
)

// Name is the template name, also used as its catalog key.
const Name = "reservation"

const (
	StartReservation  statemachine.StateID = "StartReservation"
	ProvideGuestCount statemachine.StateID = "ProvideGuestCount"
	InvalidGuestCount statemachine.StateID = "InvalidGuestCount"
	ValidGuestCount   statemachine.StateID = "ValidGuestCount"
	ProvideTime       statemachine.StateID = "ProvideTime"
	InvalidTime       statemachine.StateID = "InvalidTime"
	DoReservation     statemachine.StateID = "DoReservation"
	Quit              statemachine.StateID = "Quit"
)

const (
	// QuitKeyword ends the conversation from any state.
	QuitKeyword = "quit"

	// Limit is the largest value either answer may take.
	Limit = 10

	VarGuests = "guests"
	VarTime   = "time"

	// AttrLastReservation is the session attribute holding the completed booking.
	AttrLastReservation = "lastReservation"
)

// Booking is what a completed conversation records in the session.
type Booking struct {
	Guests int `json:"guests"`
	Time   int `json:"time"`
}

// New declares the reservation template.
func New() (*statemachine.Template, error) {
	return statemachine.New(Name).
		Initial(StartReservation).
		Transition(StartReservation, ProvideGuestCount).
		Choice(ProvideGuestCount,
			statemachine.When(invalidAnswer, InvalidGuestCount).Labeled("blank, non-numeric or > 10"),
			statemachine.Otherwise(ValidGuestCount),
		).
		Transition(InvalidGuestCount, ProvideGuestCount).
		OnEntry(ValidGuestCount, remember(VarGuests)).
		Transition(ValidGuestCount, ProvideTime).
		Choice(ProvideTime,
			statemachine.When(invalidAnswer, InvalidTime).Labeled("blank, non-numeric or > 10"),
			statemachine.Otherwise(DoReservation),
		).
		Transition(InvalidTime, ProvideTime).
		OnEntry(DoReservation, book).
		Terminal(DoReservation).
		Quit(Quit, QuitKeyword).
		Build()
}

// invalidAnswer rejects blank and non-numeric input, and numbers above Limit.
// Only the upper bound is enforced: zero and negative counts pass.
func invalidAnswer(input string, _ statemachine.Vars) bool {
	n, ok := parse(input)
	if !ok {
		return true
	}
	return n > Limit
}

func parse(input string) (int, bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, false
	}
	n, err := strconv.Atoi(input)
	if err != nil {
		return 0, false
	}
	return n, true
}

func remember(key string) statemachine.Action {
	return func(_ context.Context, inst *statemachine.Instance, input string) {
		if n, ok := parse(input); ok {
			inst.Vars()[key] = n
		}
	}
}

func book(ctx context.Context, inst *statemachine.Instance, input string) {
	remember(VarTime)(ctx, inst, input)

	b := Booking{Time: asInt(inst.Vars()[VarTime]), Guests: asInt(inst.Vars()[VarGuests])}
	if attrs := inst.Attributes(); attrs != nil {
		attrs.SetAttribute(AttrLastReservation, map[string]any{"guests": b.Guests, "time": b.Time})
	}
	inst.Stop()
}

// asInt accepts the float64 values produced by a JSON round trip of the instance vars.
func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}
