package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStateEnter        EventType = "state_enter"
	EventConversationStart EventType = "conversation_start"
	EventConversationEnd   EventType = "conversation_end"
	EventMatch             EventType = "match"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// StateEvent represents entry into a conversation state, or a conversation boundary.
type StateEvent struct {
	EventBase
	Conversation string `json:"conversation"`
	State        string `json:"state"`
}

// MatchEvent represents the outcome of matching one utterance.
type MatchEvent struct {
	EventBase
	BotID  string      `json:"bot_id"`
	Result MatchResult `json:"result"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnStateEnter        func(context.Context, *StateEvent)
	OnConversationStart func(context.Context, *StateEvent)
	OnConversationEnd   func(context.Context, *StateEvent)
	OnMatch             func(context.Context, *MatchEvent)
	OnTransaction       func(context.Context, *Transaction)
}
