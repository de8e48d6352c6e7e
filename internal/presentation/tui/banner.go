// Package tui holds the terminal styling of the chat REPL.
package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// Styles colours REPL output for the terminal it writes to.
type Styles struct {
	profile termenv.Profile
}

// NewStyles detects the colour profile of w. Non-terminals get plain text.
func NewStyles(w io.Writer) Styles {
	return Styles{profile: termenv.NewOutput(w).Profile}
}

// Bot styles a bot reply.
func (s Styles) Bot(text string) string {
	return s.profile.String(text).Foreground(s.profile.Color("#a78bfa")).String()
}

// Prompt styles the input prompt.
func (s Styles) Prompt(text string) string {
	return s.profile.String(text).Foreground(s.profile.Color("#818cf8")).Bold().String()
}

// Faint styles hints and metadata.
func (s Styles) Faint(text string) string {
	return s.profile.String(text).Faint().String()
}

// Error styles failures.
func (s Styles) Error(text string) string {
	return s.profile.String(text).Foreground(s.profile.Color("#fb7185")).String()
}

// PrintBanner writes the SeerBot banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.NewOutput(w).Profile
	lines := []struct {
		text, color string
	}{
		{`  ____                 ____        _   `, "#818cf8"},
		{` / ___|  ___  ___ _ __| __ )  ___ | |_ `, "#a78bfa"},
		{` \___ \ / _ \/ _ \ '__|  _ \ / _ \| __|`, "#c084fc"},
		{`  ___) |  __/  __/ |  | |_) | (_) | |_ `, "#e879f9"},
		{` |____/ \___|\___|_|  |____/ \___/ \__|`, "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, p.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
