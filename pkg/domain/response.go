package domain

// ResponseKind tells the renderer how to interpret a ResponseKey's Ref.
type ResponseKind string

const (
	// ResponseMessage keys name an entry of the message bundle (state ids, fallbacks).
	ResponseMessage ResponseKind = "message"
	// ResponseText keys carry the localized response text of an intent.
	ResponseText ResponseKind = "text"
)

// MessageDoNotUnderstand is the bundle entry used when no fallback intent is defined.
const MessageDoNotUnderstand = "DoNotUnderstand"

// MessageInitialResponse is the bundle entry used when no Initiate intent is defined.
const MessageInitialResponse = "initialResponse"

// ResponseKey is the abstract reference selected by the resolver.
type ResponseKey struct {
	Kind   ResponseKind `json:"kind"`
	Ref    string       `json:"ref"`
	Intent string       `json:"intent,omitempty"`
}

// MessageKey builds a key that renders a message bundle entry.
func MessageKey(ref string) ResponseKey {
	return ResponseKey{Kind: ResponseMessage, Ref: ref}
}

// TextKey builds a key that renders an intent's response text.
func TextKey(intent, text string) ResponseKey {
	return ResponseKey{Kind: ResponseText, Ref: text, Intent: intent}
}
