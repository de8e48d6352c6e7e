// Package response decides which response key answers an utterance.
//
// An active conversation always wins. A confident match on a conversation starter
// opens that conversation. Anything else is answered by an intent response, and
// when nothing fits, by the do-not-understand fallback.
package response

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bbkanego/seerbot/internal/logging"
	"github.com/bbkanego/seerbot/pkg/domain"
	"github.com/bbkanego/seerbot/pkg/ports"
	"github.com/bbkanego/seerbot/pkg/session"
)

// Config is the part of a bot configuration the resolver needs.
type Config interface {
	OwnerID() string
	Locale() string
	CustomIntent(name string) (domain.IntentDef, bool)
}

// Resolution is the outcome of resolving one utterance.
type Resolution struct {
	Key domain.ResponseKey
	// Conversation is set when a conversation produced the key.
	Conversation   bool
	ConversationID string
}

// Resolver selects response keys.
type Resolver struct {
	intents ports.IntentStore
	logger  *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger configures a logger for the Resolver.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// NewResolver creates a resolver that looks up non-custom intents in intents.
func NewResolver(intents ports.IntentStore, opts ...Option) *Resolver {
	r := &Resolver{
		intents: intents,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve picks the response to utterance given its match result.
// sess is mutated when a conversation starts, advances or ends.
func (r *Resolver) Resolve(ctx context.Context, utterance string, match domain.MatchResult, sess *session.ChatSession, cfg Config) (Resolution, error) {
	if sess.IsConversationActive() {
		return r.continueConversation(ctx, utterance, sess)
	}

	if match.Definite() && sess.IsIntentConversationStarter(match.Intent) {
		return r.start(ctx, sess, match.Intent)
	}

	switch match.Tier {
	case domain.TierDefinite:
		if def, ok := cfg.CustomIntent(match.Intent); ok {
			return respond(def, cfg.Locale())
		}
		return r.named(ctx, match.Intent, cfg)
	case domain.TierMaybe:
		return r.named(ctx, match.Intent, cfg)
	default:
		return r.DoNotUnderstand(ctx, cfg)
	}
}

func (r *Resolver) continueConversation(ctx context.Context, utterance string, sess *session.ChatSession) (Resolution, error) {
	id := sess.ConversationID()
	state, err := sess.DecideNextResponseInConversation(ctx, utterance)
	if err != nil {
		return Resolution{}, err
	}

	if !sess.IsConversationActive() {
		if next, ok := chained(sess); ok {
			sess.RemoveAttribute(session.AttrChainedConversation)
			r.logger.DebugContext(ctx, "starting chained conversation", "from", id, "to", next)
			return r.start(ctx, sess, next)
		}
	}
	return conversationKey(id, state), nil
}

func (r *Resolver) start(ctx context.Context, sess *session.ChatSession, intent string) (Resolution, error) {
	state, err := sess.StartConversation(ctx, intent)
	if err != nil {
		return Resolution{}, err
	}
	return conversationKey(intent, state), nil
}

// named answers with an intent looked up by name, falling back to do-not-understand.
func (r *Resolver) named(ctx context.Context, name string, cfg Config) (Resolution, error) {
	if name == "" {
		return r.DoNotUnderstand(ctx, cfg)
	}
	def, err := r.intents.FindByName(ctx, name, cfg.OwnerID())
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return r.DoNotUnderstand(ctx, cfg)
	case err != nil:
		return Resolution{}, fmt.Errorf("failed to find intent %s: %w", name, err)
	}
	return respond(def, cfg.Locale())
}

// DoNotUnderstand answers with the owner's fallback intent, or the built-in message
// when the owner defines none. A fallback intent without exactly one response for
// the locale is an error like any other intent.
func (r *Resolver) DoNotUnderstand(ctx context.Context, cfg Config) (Resolution, error) {
	def, err := r.intents.FindByName(ctx, domain.IntentDoNotUnderstand, cfg.OwnerID())
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return Resolution{Key: domain.MessageKey(domain.MessageDoNotUnderstand)}, nil
	case err != nil:
		return Resolution{}, fmt.Errorf("failed to find fallback intent: %w", err)
	}
	return respond(def, cfg.Locale())
}

// Initiate answers the utterance that opens a chat: the first response of the
// Initiate intent, or the built-in initial message.
func (r *Resolver) Initiate(ctx context.Context, cfg Config) (Resolution, error) {
	def, ok := cfg.CustomIntent(domain.IntentInitiate)
	if !ok {
		var err error
		def, err = r.intents.FindByName(ctx, domain.IntentInitiate, cfg.OwnerID())
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return Resolution{Key: domain.MessageKey(domain.MessageInitialResponse)}, nil
		case err != nil:
			return Resolution{}, fmt.Errorf("failed to find intent %s: %w", domain.IntentInitiate, err)
		}
	}

	if resp, err := def.ResponseFor(cfg.Locale()); err == nil {
		return Resolution{Key: domain.TextKey(def.Name, resp.Text)}, nil
	}
	if len(def.Responses) == 0 {
		return Resolution{Key: domain.MessageKey(domain.MessageInitialResponse)}, nil
	}
	return Resolution{Key: domain.TextKey(def.Name, def.Responses[0].Text)}, nil
}

func respond(def domain.IntentDef, locale string) (Resolution, error) {
	resp, err := def.ResponseFor(locale)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{Key: domain.TextKey(def.Name, resp.Text)}, nil
}

func conversationKey(id, state string) Resolution {
	key := domain.MessageKey(state)
	key.Intent = id
	return Resolution{Key: key, Conversation: true, ConversationID: id}
}

func chained(sess *session.ChatSession) (string, bool) {
	v, ok := sess.Attribute(session.AttrChainedConversation)
	if !ok {
		return "", false
	}
	intent, ok := v.(string)
	return intent, ok && intent != ""
}
