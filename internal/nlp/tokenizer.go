package nlp

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/bbkanego/seerbot/pkg/ports"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// TokenizerSimple folds case and accents and splits on anything that is not a letter or digit.
	TokenizerSimple = "simple"
	// TokenizerWhitespace splits on whitespace only.
	TokenizerWhitespace = "whitespace"
)

// SimpleTokenizer lowercases, strips diacritics and splits on non-alphanumerics.
type SimpleTokenizer struct{}

func (SimpleTokenizer) Tokenize(text string) []string {
	return strings.Fields(Clean(text))
}

// WhitespaceTokenizer splits on whitespace and keeps everything else verbatim.
type WhitespaceTokenizer struct{}

func (WhitespaceTokenizer) Tokenize(text string) []string {
	return strings.Fields(text)
}

// Clean lowercases text, removes combining marks and replaces every rune that is
// not a letter, digit or space with a space.
func Clean(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(text))
	if err != nil {
		folded = strings.ToLower(text)
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, folded)
}

// TokenizerFor resolves a tokenizer reference. "builtin:" prefixes are accepted.
func TokenizerFor(ref string) (ports.Tokenizer, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ref)), "builtin:") {
	case TokenizerSimple:
		return SimpleTokenizer{}, nil
	case TokenizerWhitespace:
		return WhitespaceTokenizer{}, nil
	default:
		return nil, fmt.Errorf("unknown tokenizer model %q", ref)
	}
}
