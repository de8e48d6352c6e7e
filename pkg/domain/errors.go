package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by stores when a record cannot be found.
var ErrNotFound = errors.New("not found")

// ErrSessionNotFound is returned when a session ID cannot be found in the session store.
var ErrSessionNotFound = fmt.Errorf("session %w", ErrNotFound)

var (
	// ErrConfigNotFound is returned when no launch info exists for a bot identifier.
	ErrConfigNotFound = errors.New("bot configuration not found")

	// ErrConfigLoadFailure is returned when a model, tokenizer or intent set could not be loaded.
	ErrConfigLoadFailure = errors.New("bot configuration could not be loaded")

	// ErrConversationAlreadyActive is returned when a session tries to start a second conversation.
	ErrConversationAlreadyActive = errors.New("conversation already active")

	// ErrNoActiveConversation is returned when a conversation step is requested without one.
	ErrNoActiveConversation = errors.New("no active conversation")

	// ErrUnknownConversation is returned when no template is registered for an intent.
	ErrUnknownConversation = errors.New("no conversation registered for intent")

	// ErrAmbiguousResponse is returned when an intent has more than one response for a locale.
	ErrAmbiguousResponse = errors.New("ambiguous response")

	// ErrNoResponseFound is returned when an intent has no response for a locale.
	ErrNoResponseFound = errors.New("no response found")

	// ErrClassifierFailure wraps failures raised by the intent classifier.
	ErrClassifierFailure = errors.New("classifier failure")

	// ErrInvalidRequest is returned when an inbound request is malformed.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrUnauthorized is returned when a caller fails header or token validation.
	ErrUnauthorized = errors.New("unauthorized")
)

// LoadCause identifies which step of a bot configuration build failed.
type LoadCause string

const (
	CauseLaunchInfo LoadCause = "launch_info"
	CauseStore      LoadCause = "store"
	CauseSettings   LoadCause = "settings"
	CauseTokenizer  LoadCause = "tokenizer"
	CauseModel      LoadCause = "model"
	CauseIntents    LoadCause = "intents"
	CauseTimeout    LoadCause = "timeout"
)

// ConfigError describes a failed bot configuration build.
// A CauseLaunchInfo error matches ErrConfigNotFound; every other cause matches ErrConfigLoadFailure.
type ConfigError struct {
	BotID string
	Cause LoadCause
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("bot %q: %s: %v", e.BotID, e.Cause, e.kind())
	}
	return fmt.Sprintf("bot %q: %s: %v", e.BotID, e.Cause, e.Err)
}

func (e *ConfigError) kind() error {
	if e.Cause == CauseLaunchInfo {
		return ErrConfigNotFound
	}
	return ErrConfigLoadFailure
}

// Unwrap exposes both the taxonomy sentinel and the underlying cause.
func (e *ConfigError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.kind()}
	}
	return []error{e.kind(), e.Err}
}

// ResponseError reports that an intent did not have exactly one response for a locale.
type ResponseError struct {
	Intent string
	Locale string
	Count  int
}

func (e *ResponseError) Error() string {
	if e.Count == 0 {
		return fmt.Sprintf("intent %q has no response for locale %q", e.Intent, e.Locale)
	}
	return fmt.Sprintf("intent %q has %d responses for locale %q", e.Intent, e.Count, e.Locale)
}

func (e *ResponseError) Unwrap() error {
	if e.Count == 0 {
		return ErrNoResponseFound
	}
	return ErrAmbiguousResponse
}

// ClassifierError wraps an error (or recovered panic) raised by a classifier.
type ClassifierError struct {
	BotID string
	Err   error
}

func (e *ClassifierError) Error() string {
	return fmt.Sprintf("classifier for bot %q: %v", e.BotID, e.Err)
}

func (e *ClassifierError) Unwrap() []error {
	return []error{ErrClassifierFailure, e.Err}
}
