package domain

import "strings"

// DefaultLocale is used when neither the bot nor the request names one.
const DefaultLocale = "en"

// LaunchInfo is the deployment metadata of a bot, resolved by its public identifier.
type LaunchInfo struct {
	BotID          string         `json:"bot_id" yaml:"bot_id"`
	OwnerID        string         `json:"owner_id" yaml:"owner_id"`
	CategoryCode   string         `json:"category_code" yaml:"category_code"`
	TargetBotID    string         `json:"target_bot_id" yaml:"target_bot_id"`
	AllowedOrigins []string       `json:"allowed_origins" yaml:"allowed_origins"`
	ModelRef       string         `json:"model_ref" yaml:"model_ref"`
	TokenizerRef   string         `json:"tokenizer_ref" yaml:"tokenizer_ref"`
	Locale         string         `json:"locale" yaml:"locale"`
	Settings       map[string]any `json:"settings,omitempty" yaml:"settings,omitempty"`
}

// AllowsOrigin reports whether origin may talk to this bot.
// A "*" entry allows every origin.
func (l LaunchInfo) AllowsOrigin(origin string) bool {
	for _, allowed := range l.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(strings.TrimRight(allowed, "/"), strings.TrimRight(origin, "/")) {
			return true
		}
	}
	return false
}

// LocalizedResponse is one response text of an intent in a given locale.
type LocalizedResponse struct {
	Locale string `json:"locale" yaml:"locale"`
	Text   string `json:"text" yaml:"text"`
}

// IntentDef is a named intent with its localized responses.
type IntentDef struct {
	Name         string              `json:"name" yaml:"name"`
	SourceID     string              `json:"source_id" yaml:"source_id"`
	OwnerID      string              `json:"owner_id" yaml:"owner_id"`
	CategoryCode string              `json:"category_code" yaml:"category_code"`
	Responses    []LocalizedResponse `json:"responses" yaml:"responses"`
}

// ResponseFor returns the single response for locale.
// Zero or more than one matching response is reported as a *ResponseError.
func (d IntentDef) ResponseFor(locale string) (LocalizedResponse, error) {
	if locale == "" {
		locale = DefaultLocale
	}

	var exact, found []LocalizedResponse
	for _, r := range d.Responses {
		if SameLocale(r.Locale, locale) {
			exact = append(exact, r)
		}
		if MatchesLocale(r.Locale, locale) {
			found = append(found, r)
		}
	}
	if len(exact) > 0 {
		found = exact
	}
	if len(found) != 1 {
		return LocalizedResponse{}, &ResponseError{Intent: d.Name, Locale: locale, Count: len(found)}
	}
	return found[0], nil
}

// SameLocale reports whether candidate and want name the same tag,
// ignoring case and the choice of "-" or "_" as separator.
func SameLocale(candidate, want string) bool {
	return strings.EqualFold(strings.ReplaceAll(candidate, "_", "-"), strings.ReplaceAll(want, "_", "-"))
}

// MatchesLocale compares the language subtags of candidate and want,
// so "en_US" and "en-GB" both match "en".
func MatchesLocale(candidate, want string) bool {
	return strings.EqualFold(language(candidate), language(want))
}

func language(tag string) string {
	if i := strings.IndexAny(tag, "-_"); i >= 0 {
		return tag[:i]
	}
	return tag
}
