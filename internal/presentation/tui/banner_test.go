package tui_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/bbkanego/seerbot/internal/presentation/tui"
	"github.com/stretchr/testify/assert"
)

func TestStyles_PlainForNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	s := tui.NewStyles(&buf)

	assert.Equal(t, "hello", s.Bot("hello"))
	assert.Equal(t, "> ", s.Prompt("> "))
	assert.Equal(t, "oops", s.Error("oops"))
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf)
	out := buf.String()

	assert.NotContains(t, out, "\x1b[", "no escape codes when writing to a buffer")
	assert.Equal(t, 7, strings.Count(out, "\n"))
}

func TestStyles_FaintIsPlainForNonTerminal(t *testing.T) {
	assert.Equal(t, "hint", tui.NewStyles(&bytes.Buffer{}).Faint("hint"))
}
