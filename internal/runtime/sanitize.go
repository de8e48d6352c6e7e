package runtime

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bbkanego/seerbot/pkg/domain"
)

// DefaultMaxUtterance bounds the bytes of one inbound utterance.
const DefaultMaxUtterance = 4096

// WithMaxUtterance overrides DefaultMaxUtterance. Non-positive values keep the default.
func WithMaxUtterance(limit int) Option {
	return func(o *Orchestrator) {
		if limit > 0 {
			o.maxUtterance = limit
		}
	}
}

// Sanitize rejects oversized and non-UTF-8 utterances and strips control characters
// other than newline, tab and carriage return. Surrounding space is trimmed.
// Oversized input is rejected rather than truncated so no partial answer is matched.
func Sanitize(utterance string, limit int) (string, error) {
	if len(utterance) > limit {
		return "", fmt.Errorf("%w: message of %d bytes exceeds the %d byte limit", domain.ErrInvalidRequest, len(utterance), limit)
	}
	if !utf8.ValidString(utterance) {
		return "", fmt.Errorf("%w: message is not valid UTF-8", domain.ErrInvalidRequest)
	}
	if strings.IndexFunc(utterance, unsafeControl) >= 0 {
		utterance = strings.Map(func(r rune) rune {
			if unsafeControl(r) {
				return -1
			}
			return r
		}, utterance)
	}
	return strings.TrimSpace(utterance), nil
}

func unsafeControl(r rune) bool {
	return unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r'
}
