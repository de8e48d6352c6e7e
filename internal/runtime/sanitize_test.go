package runtime_test

import (
	"strings"
	"testing"

	"github.com/bbkanego/seerbot/internal/runtime"
	"github.com/bbkanego/seerbot/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "book a table", "book a table"},
		{"trimmed", "  4 \n", "4"},
		{"ansi escape", "\x1b[31mred\x1b[0m", "[31mred[0m"},
		{"null and bell", "a\x00b\x07c", "abc"},
		{"keeps inner whitespace", "line1\nline2\tend", "line1\nline2\tend"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := runtime.Sanitize(tt.input, runtime.DefaultMaxUtterance)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitize_Rejects(t *testing.T) {
	_, err := runtime.Sanitize(strings.Repeat("a", 11), 10)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = runtime.Sanitize(strings.Repeat("a", 10), 10)
	assert.NoError(t, err)

	_, err = runtime.Sanitize("bad \xff byte", 10)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}
