package graph_test

import (
	"strings"
	"testing"

	"github.com/bbkanego/seerbot/internal/presentation/graph"
	"github.com/bbkanego/seerbot/pkg/conversations/reservation"
	"github.com/bbkanego/seerbot/pkg/statemachine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateMermaid_Reservation(t *testing.T) {
	tpl, err := reservation.New()
	require.NoError(t, err)

	out := graph.GenerateMermaid(tpl, nil)
	assert.True(t, strings.HasPrefix(out, "graph TD\n"))

	for _, want := range []string{
		`StartReservation(("StartReservation"))`,
		`ProvideGuestCount{"ProvideGuestCount"}`,
		`DoReservation(["DoReservation"])`,
		`Quit(["Quit"])`,
		`ValidGuestCount["ValidGuestCount"]`,
		"StartReservation --> ProvideGuestCount",
		`ProvideGuestCount -- "blank, non-numeric or > 10" --> InvalidGuestCount`,
		`ProvideGuestCount -- "otherwise" --> ValidGuestCount`,
		"InvalidTime -. quit .-> Quit",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "ProvideTime -. quit", "choice points are never resting states")
	assert.NotContains(t, out, "DoReservation -. quit")
	assert.NotContains(t, out, "classDef")
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	tpl, err := reservation.New()
	require.NoError(t, err)

	out := graph.GenerateMermaid(tpl, &graph.Overlay{
		Visited: []string{"StartReservation", "InvalidGuestCount", "StartReservation", "Gone"},
		Current: "ValidGuestCount",
	})

	assert.Equal(t, 1, strings.Count(out, "class StartReservation visited;"))
	assert.Contains(t, out, "class InvalidGuestCount visited;")
	assert.NotContains(t, out, "class Gone")
	assert.Contains(t, out, "class ValidGuestCount current;")
}

func TestGenerateMermaid_SanitizesIDs(t *testing.T) {
	tpl := statemachine.New("odd").
		Initial("ask.name").
		Transition("ask.name", "say-bye").
		Terminal("say-bye").
		MustBuild()

	out := graph.GenerateMermaid(tpl, &graph.Overlay{Current: "say-bye"})
	assert.Contains(t, out, `ask_name(("ask.name"))`)
	assert.Contains(t, out, "ask_name --> say_bye")
	assert.Contains(t, out, "class say_bye current;")
}
