package reservation_test

import (
	"context"
	"testing"

	"github.com/bbkanego/seerbot/pkg/conversations/reservation"
	"github.com/bbkanego/seerbot/pkg/statemachine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func start(t *testing.T) *statemachine.Instance {
	t.Helper()
	tpl, err := reservation.New()
	require.NoError(t, err)
	return statemachine.Start(context.Background(), tpl)
}

func TestGuestCount(t *testing.T) {
	ctx := context.Background()

	t.Run("valid count moves on to the time question", func(t *testing.T) {
		inst := start(t)
		require.NoError(t, inst.Advance(ctx, "5"))
		assert.Equal(t, reservation.ValidGuestCount, inst.Current())
		assert.Equal(t, 5, inst.Vars()[reservation.VarGuests])

		next, ok := inst.Template().Next(inst.Current())
		require.True(t, ok)
		assert.Equal(t, reservation.ProvideTime, next)
	})

	t.Run("count above the limit loops back", func(t *testing.T) {
		inst := start(t)
		require.NoError(t, inst.Advance(ctx, "15"))
		assert.Equal(t, reservation.InvalidGuestCount, inst.Current())

		next, ok := inst.Template().Next(inst.Current())
		require.True(t, ok)
		assert.Equal(t, reservation.ProvideGuestCount, next)

		require.NoError(t, inst.Advance(ctx, "4"))
		assert.Equal(t, reservation.ValidGuestCount, inst.Current())
	})

	for _, input := range []string{"", "   ", "four", "4.5", "11"} {
		t.Run("invalid "+input, func(t *testing.T) {
			inst := start(t)
			require.NoError(t, inst.Advance(ctx, input))
			assert.Equal(t, reservation.InvalidGuestCount, inst.Current())
		})
	}
}

// The guards only reject values above the limit. Non-positive guest counts are
// accepted, which is almost certainly not the intended business rule; these cases
// pin the current behavior so a change to it is a deliberate decision.
func TestGuestCount_SuspectThreshold(t *testing.T) {
	ctx := context.Background()
	for _, input := range []string{"10", "1", "0", "-3"} {
		t.Run(input, func(t *testing.T) {
			inst := start(t)
			require.NoError(t, inst.Advance(ctx, input))
			assert.Equal(t, reservation.ValidGuestCount, inst.Current(), "suspect rule: %q is accepted", input)
		})
	}
}

func TestTime(t *testing.T) {
	ctx := context.Background()
	inst := start(t)
	require.NoError(t, inst.Advance(ctx, "2"))

	require.NoError(t, inst.Advance(ctx, "13"))
	assert.Equal(t, reservation.InvalidTime, inst.Current())
	assert.False(t, inst.IsTerminal())

	require.NoError(t, inst.Advance(ctx, "later"))
	assert.Equal(t, reservation.InvalidTime, inst.Current())

	require.NoError(t, inst.Advance(ctx, "7"))
	assert.Equal(t, reservation.DoReservation, inst.Current())
	assert.True(t, inst.IsTerminal())
	assert.Equal(t, 7, inst.Vars()[reservation.VarTime])
	assert.Equal(t, 2, inst.Vars()[reservation.VarGuests])
}

// Walking the declared transitions by hand must land where the interpreter does.
func TestHappyPath_RoundTrip(t *testing.T) {
	ctx := context.Background()
	tpl, err := reservation.New()
	require.NoError(t, err)

	inputs := []string{"4", "8"}
	manual := tpl.Initial()
	for range inputs {
		next, ok := tpl.Next(manual)
		require.True(t, ok, "no transition from %s", manual)
		for tpl.IsChoice(next) {
			branches := tpl.Branches(next)
			// The default branch is the valid one; valid inputs never match a guard.
			next = branches[len(branches)-1].Target
		}
		manual = next
	}
	assert.True(t, tpl.IsTerminal(manual))

	inst := statemachine.Start(ctx, tpl)
	for _, in := range inputs {
		require.NoError(t, inst.Advance(ctx, in))
	}
	assert.Equal(t, manual, inst.Current())
	assert.True(t, inst.IsTerminal())
}

func TestQuitFromEveryState(t *testing.T) {
	ctx := context.Background()
	paths := map[string][]string{
		"StartReservation":  nil,
		"InvalidGuestCount": {"99"},
		"ValidGuestCount":   {"3"},
		"InvalidTime":       {"3", "x"},
	}

	for name, path := range paths {
		t.Run(name, func(t *testing.T) {
			inst := start(t)
			for _, in := range path {
				require.NoError(t, inst.Advance(ctx, in))
			}
			require.Equal(t, statemachine.StateID(name), inst.Current())

			require.NoError(t, inst.Advance(ctx, "QuIt"))
			assert.Equal(t, reservation.Quit, inst.Current())
			assert.True(t, inst.IsTerminal())
			assert.Empty(t, inst.Vars())
		})
	}
}

func TestBookingRecordedInAttributes(t *testing.T) {
	ctx := context.Background()
	tpl, err := reservation.New()
	require.NoError(t, err)

	attrs := &attrStore{m: map[string]any{}}
	inst := statemachine.Start(ctx, tpl, statemachine.WithAttributes(attrs))
	require.NoError(t, inst.Advance(ctx, "6"))
	require.NoError(t, inst.Advance(ctx, "9"))

	assert.Equal(t, map[string]any{"guests": 6, "time": 9}, attrs.m[reservation.AttrLastReservation])
}

type attrStore struct{ m map[string]any }

func (a *attrStore) Attribute(name string) (any, bool) {
	v, ok := a.m[name]
	return v, ok
}

func (a *attrStore) SetAttribute(name string, v any) { a.m[name] = v }

func (a *attrStore) RemoveAttribute(name string) { delete(a.m, name) }
