package domain

import "time"

// ConversationSnapshot is the persisted form of a live conversation instance.
type ConversationSnapshot struct {
	// Intent is the conversation-starter intent; it doubles as the conversation id.
	Intent   string         `json:"intent"`
	Template string         `json:"template"`
	State    string         `json:"state"`
	Vars     map[string]any `json:"vars,omitempty"`
	Stopped  bool           `json:"stopped,omitempty"`
	History  []string       `json:"history,omitempty"`
}

// SessionSnapshot is the persisted form of a chat session.
type SessionSnapshot struct {
	SessionID      string                `json:"session_id"`
	ChatSessionID  string                `json:"chat_session_id"`
	AuthCode       string                `json:"auth_code,omitempty"`
	Attributes     map[string]any        `json:"attributes,omitempty"`
	LastInboundRef string                `json:"last_inbound_ref,omitempty"`
	Conversation   *ConversationSnapshot `json:"conversation,omitempty"`
	UpdatedAt      time.Time             `json:"updated_at"`
}
