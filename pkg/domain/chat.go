package domain

import "time"

const (
	// BotAccountID is the account recorded on outbound chat records.
	BotAccountID = "ChatBot"

	// AnonymousAccountID is the account recorded on inbound chat records.
	AnonymousAccountID = "Anonymous"

	// IntentNoMatch is recorded on transactions that matched nothing.
	IntentNoMatch = "NO_MATCH"

	// IntentInitiate is the utterance that opens a chat and the intent answering it.
	IntentInitiate = "Initiate"

	// IntentDoNotUnderstand is the fallback intent used when nothing matched.
	IntentDoNotUnderstand = "DoNotUnderstandIntent"
)

// ChatRecord is one persisted message, inbound or outbound.
type ChatRecord struct {
	ID             string    `json:"id"`
	ChatSessionID  string    `json:"chat_session_id"`
	SessionID      string    `json:"session_id"`
	AccountID      string    `json:"account_id"`
	OwnerID        string    `json:"owner_id"`
	BotID          string    `json:"bot_id"`
	Message        string    `json:"message"`
	Response       string    `json:"response,omitempty"`
	PreviousChatID string    `json:"previous_chat_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Transaction is the write-once audit record created for every processed message.
type Transaction struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	TargetBotID string    `json:"target_bot_id"`
	Intent      string    `json:"intent"`
	Success     bool      `json:"success"`
	Utterance   string    `json:"utterance"`
	Resolved    bool      `json:"resolved"`
	Ignore      bool      `json:"ignore"`
	Timestamp   time.Time `json:"timestamp"`
}

// InboundMessage is what the transport hands to the orchestrator.
type InboundMessage struct {
	SessionID      string
	BotID          string
	Utterance      string
	PreviousChatID string
}

// OutboundMessage is what the orchestrator hands back to the transport.
type OutboundMessage struct {
	ResponseText  string `json:"response"`
	SessionID     string `json:"sessionId"`
	ChatSessionID string `json:"chatSessionId"`
	ChatID        string `json:"chatId"`
}
