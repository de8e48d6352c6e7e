package session

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/bbkanego/seerbot/pkg/domain"
	"github.com/bbkanego/seerbot/pkg/statemachine"
	"github.com/google/uuid"
)

// AttrChainedConversation names the attribute a conversation sets to have another
// conversation start as soon as it ends. The value is the starter intent.
const AttrChainedConversation = "chainedConversation"

// Templates resolves conversation-starter intents to templates.
// *registry.Registry satisfies it.
type Templates interface {
	Has(intent string) bool
	Template(intent string) (*statemachine.Template, error)
}

// ChatSession is the server-side state of one visitor.
// It is not safe for concurrent use; the Manager serializes access.
type ChatSession struct {
	id            string
	chatSessionID string
	authCode      string
	templates     Templates
	hooks         domain.LifecycleHooks

	active       *statemachine.Instance
	activeIntent string
	attrs        map[string]any
	lastInbound  string
}

// Option configures a ChatSession.
type Option func(*ChatSession)

// WithHooks registers observability hooks for conversation boundaries and state entries.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(s *ChatSession) {
		s.hooks = hooks
	}
}

// WithAuthCode records the auth code of the visitor.
func WithAuthCode(code string) Option {
	return func(s *ChatSession) {
		s.authCode = code
	}
}

// New creates an empty session with a fresh chat session id.
func New(sessionID string, templates Templates, opts ...Option) *ChatSession {
	s := &ChatSession{
		id:            sessionID,
		chatSessionID: uuid.NewString(),
		templates:     templates,
		attrs:         make(map[string]any),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the session id.
func (s *ChatSession) ID() string { return s.id }

// ChatSessionID groups the chat records of this session.
func (s *ChatSession) ChatSessionID() string { return s.chatSessionID }

// AuthCode returns the visitor's auth code, if any.
func (s *ChatSession) AuthCode() string { return s.authCode }

// IsConversationActive reports whether a conversation is in progress.
func (s *ChatSession) IsConversationActive() bool { return s.active != nil }

// ConversationID returns the starter intent of the active conversation, or "".
func (s *ChatSession) ConversationID() string { return s.activeIntent }

// Conversation returns the active instance, or nil.
func (s *ChatSession) Conversation() *statemachine.Instance { return s.active }

// IsIntentConversationStarter reports whether intent starts a conversation.
func (s *ChatSession) IsIntentConversationStarter(intent string) bool {
	return intent != "" && s.templates != nil && s.templates.Has(intent)
}

// StartConversation starts the conversation bound to intent and returns the key of
// its initial state.
func (s *ChatSession) StartConversation(ctx context.Context, intent string) (string, error) {
	if s.active != nil {
		return "", fmt.Errorf("%w: %s is in progress", domain.ErrConversationAlreadyActive, s.activeIntent)
	}
	if s.templates == nil {
		return "", fmt.Errorf("%w: %s", domain.ErrUnknownConversation, intent)
	}
	tpl, err := s.templates.Template(intent)
	if err != nil {
		return "", err
	}

	s.active = statemachine.Start(ctx, tpl, statemachine.WithAttributes(s), statemachine.WithHooks(s.hooks))
	s.activeIntent = intent
	s.emit(ctx, s.hooks.OnConversationStart, domain.EventConversationStart, tpl.Name(), s.active.Current())

	key := string(s.active.Current())
	if s.active.IsTerminal() {
		s.EndConversation(ctx)
	}
	return key, nil
}

// DecideNextResponseInConversation advances the active conversation with utterance
// and returns the key of the state it landed on. A conversation that reaches a
// terminal state is cleared.
func (s *ChatSession) DecideNextResponseInConversation(ctx context.Context, utterance string) (string, error) {
	if s.active == nil {
		return "", domain.ErrNoActiveConversation
	}

	if err := s.active.Advance(ctx, utterance); err != nil {
		intent := s.activeIntent
		s.EndConversation(ctx)
		return "", fmt.Errorf("conversation %s: %w", intent, err)
	}

	key := string(s.active.Current())
	if s.active.IsTerminal() {
		s.EndConversation(ctx)
	}
	return key, nil
}

// EndConversation drops the active conversation, if any.
func (s *ChatSession) EndConversation(ctx context.Context) {
	if s.active == nil {
		return
	}
	inst := s.active
	s.active = nil
	s.activeIntent = ""
	s.emit(ctx, s.hooks.OnConversationEnd, domain.EventConversationEnd, inst.Template().Name(), inst.Current())
}

func (s *ChatSession) emit(ctx context.Context, hook func(context.Context, *domain.StateEvent), typ domain.EventType, conversation string, state statemachine.StateID) {
	if hook == nil {
		return
	}
	hook(ctx, &domain.StateEvent{
		EventBase:    domain.EventBase{Timestamp: time.Now(), Type: typ},
		Conversation: conversation,
		State:        string(state),
	})
}

// Attribute returns a session attribute.
func (s *ChatSession) Attribute(name string) (any, bool) {
	v, ok := s.attrs[name]
	return v, ok
}

// SetAttribute sets a session attribute.
func (s *ChatSession) SetAttribute(name string, value any) { s.attrs[name] = value }

// RemoveAttribute deletes a session attribute.
func (s *ChatSession) RemoveAttribute(name string) { delete(s.attrs, name) }

// Attributes returns a copy of the session attributes.
func (s *ChatSession) Attributes() map[string]any { return maps.Clone(s.attrs) }

// LastInboundRef is the chat id of the last inbound message.
func (s *ChatSession) LastInboundRef() string { return s.lastInbound }

// SetLastInboundRef records the chat id of the last inbound message.
func (s *ChatSession) SetLastInboundRef(ref string) { s.lastInbound = ref }

// Snapshot captures the session for persistence.
func (s *ChatSession) Snapshot() domain.SessionSnapshot {
	snap := domain.SessionSnapshot{
		SessionID:      s.id,
		ChatSessionID:  s.chatSessionID,
		AuthCode:       s.authCode,
		Attributes:     maps.Clone(s.attrs),
		LastInboundRef: s.lastInbound,
		UpdatedAt:      time.Now().UTC(),
	}
	if s.active != nil {
		conv := s.active.Snapshot()
		conv.Intent = s.activeIntent
		snap.Conversation = &conv
	}
	return snap
}

// ErrStaleConversation is returned by Restore when the persisted conversation no
// longer fits its template. The returned session is usable without it.
var ErrStaleConversation = errors.New("persisted conversation dropped")

// Restore rebuilds a session from a snapshot.
//
// If the snapshot's conversation cannot be restored, the session is still returned,
// without a conversation, together with an error matching ErrStaleConversation.
func Restore(snap domain.SessionSnapshot, templates Templates, opts ...Option) (*ChatSession, error) {
	s := New(snap.SessionID, templates, opts...)
	if snap.ChatSessionID != "" {
		s.chatSessionID = snap.ChatSessionID
	}
	if snap.AuthCode != "" {
		s.authCode = snap.AuthCode
	}
	maps.Copy(s.attrs, snap.Attributes)
	s.lastInbound = snap.LastInboundRef

	conv := snap.Conversation
	if conv == nil {
		return s, nil
	}
	if templates == nil {
		return s, fmt.Errorf("%w: %s: no templates", ErrStaleConversation, conv.Intent)
	}
	tpl, err := templates.Template(conv.Intent)
	if err != nil {
		return s, fmt.Errorf("%w: %w", ErrStaleConversation, err)
	}
	inst, err := statemachine.Restore(tpl, *conv, statemachine.WithAttributes(s), statemachine.WithHooks(s.hooks))
	if err != nil {
		return s, fmt.Errorf("%w: %w", ErrStaleConversation, err)
	}
	if !inst.IsTerminal() {
		s.active = inst
		s.activeIntent = conv.Intent
	}
	return s, nil
}
