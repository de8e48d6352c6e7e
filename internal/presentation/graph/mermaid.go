// Package graph renders conversation templates as Mermaid flowcharts.
package graph

import (
	"fmt"
	"strings"

	"github.com/bbkanego/seerbot/pkg/statemachine"
)

// Overlay marks the progress of a live conversation on the graph.
type Overlay struct {
	Visited []string
	Current string
}

// GenerateMermaid produces a Mermaid flowchart of tpl.
// Shapes follow the state kind:
// - initial: ((circle))
// - choice point: {diamond}
// - terminal: ([stadium])
// - other: [rectangle]
// Quit edges are dotted, and the overlay styles visited and current states.
func GenerateMermaid(tpl *statemachine.Template, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, id := range tpl.States() {
		opener, closer := "[", "]"
		switch {
		case id == tpl.Initial():
			opener, closer = "((", "))"
		case tpl.IsChoice(id):
			opener, closer = "{", "}"
		case tpl.IsTerminal(id):
			opener, closer = "([", "])"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", sanitizeID(string(id)), opener, id, closer)
	}

	for _, t := range tpl.Transitions() {
		fmt.Fprintf(&sb, "    %s --> %s\n", sanitizeID(string(t.From)), sanitizeID(string(t.To)))
	}

	for _, id := range tpl.States() {
		if !tpl.IsChoice(id) {
			continue
		}
		for _, br := range tpl.Branches(id) {
			label := br.Label
			if label == "" {
				label = "when"
			}
			fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n",
				sanitizeID(string(id)), strings.ReplaceAll(label, "\"", "'"), sanitizeID(string(br.Target)))
		}
	}

	if quit := tpl.QuitState(); quit != "" {
		for _, id := range tpl.States() {
			if id == quit || tpl.IsChoice(id) || tpl.IsTerminal(id) {
				continue
			}
			fmt.Fprintf(&sb, "    %s -. quit .-> %s\n", sanitizeID(string(id)), sanitizeID(string(quit)))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps the overlay readable on light and dark themes.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.Visited {
			safe := sanitizeID(id)
			if safe == "" || seen[safe] || !tpl.Has(statemachine.StateID(id)) {
				continue
			}
			seen[safe] = true
			fmt.Fprintf(&sb, "    class %s visited;\n", safe)
		}
		if overlay.Current != "" && tpl.Has(statemachine.StateID(overlay.Current)) {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeID(overlay.Current))
		}
	}

	return sb.String()
}

var idReplacer = strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_")

func sanitizeID(id string) string {
	return idReplacer.Replace(id)
}
