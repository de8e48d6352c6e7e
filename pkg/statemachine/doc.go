/*
Package statemachine implements the small, named conversation state machines that
drive multi-turn exchanges.

A Template is declared once with a fluent Builder and validated on Build. Instances
are cheap, mutable interpreters over a Template:

	tpl, err := statemachine.New("reservation").
		Initial("Start").
		Transition("Start", "AskCount").
		Choice("AskCount",
			statemachine.When(isInvalid, "Invalid"),
			statemachine.Otherwise("Valid"),
		).
		Transition("Invalid", "AskCount").
		Terminal("Valid").
		Build()

	inst := statemachine.Start(ctx, tpl)
	_ = inst.Advance(ctx, "4")

Choice points are ordered lists of guarded branches evaluated top to bottom.
The last branch of every choice point must be an unguarded default; Build rejects
templates that rely on implicit fall-through.
*/
package statemachine
