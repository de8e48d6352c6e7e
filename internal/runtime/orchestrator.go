// Package runtime drives one inbound chat message through the dialogue engine.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bbkanego/seerbot/internal/botconfig"
	"github.com/bbkanego/seerbot/internal/intent"
	"github.com/bbkanego/seerbot/internal/logging"
	"github.com/bbkanego/seerbot/internal/response"
	"github.com/bbkanego/seerbot/pkg/domain"
	"github.com/bbkanego/seerbot/pkg/ports"
	"github.com/bbkanego/seerbot/pkg/session"
	"github.com/google/uuid"
)

// ConfigSource returns the runtime configuration of a bot. *botconfig.Cache satisfies it.
type ConfigSource interface {
	Get(ctx context.Context, botID string) (*botconfig.Config, error)
}

// Deps are the collaborators an Orchestrator cannot run without.
type Deps struct {
	Configs      ConfigSource
	Sessions     *session.Manager
	Intents      ports.IntentStore
	Chats        ports.ChatStore
	Transactions ports.TransactionStore
	Renderer     ports.TemplateRenderer
}

func (d Deps) validate() error {
	var missing []string
	if d.Configs == nil {
		missing = append(missing, "Configs")
	}
	if d.Sessions == nil {
		missing = append(missing, "Sessions")
	}
	if d.Intents == nil {
		missing = append(missing, "Intents")
	}
	if d.Chats == nil {
		missing = append(missing, "Chats")
	}
	if d.Transactions == nil {
		missing = append(missing, "Transactions")
	}
	if d.Renderer == nil {
		missing = append(missing, "Renderer")
	}
	if len(missing) > 0 {
		return fmt.Errorf("orchestrator: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// Orchestrator handles inbound messages.
type Orchestrator struct {
	deps     Deps
	matcher  *intent.Matcher
	resolver *response.Resolver
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	now      func() time.Time

	maxUtterance int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithHooks registers lifecycle hooks. They are passed on to the matcher.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(o *Orchestrator) {
		o.hooks = hooks
	}
}

// WithLogger configures a logger for the Orchestrator.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithClock overrides the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// New creates an Orchestrator.
func New(deps Deps, opts ...Option) (*Orchestrator, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	o := &Orchestrator{
		deps:         deps,
		logger:       logging.NewNop(),
		now:          time.Now,
		maxUtterance: DefaultMaxUtterance,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.matcher = intent.NewMatcher(intent.WithHooks(o.hooks), intent.WithLogger(o.logger))
	o.resolver = response.NewResolver(deps.Intents, response.WithLogger(o.logger))
	return o, nil
}

// HandleInboundMessage runs one message through the session's conversation.
//
// Every write happens inside the session manager's unit of work, under the session
// lock. A failed message leaves no chat records, no transaction and no session
// change behind on stores that roll back. Returned errors are *domain.ClientError.
func (o *Orchestrator) HandleInboundMessage(ctx context.Context, msg domain.InboundMessage) (domain.OutboundMessage, error) {
	out, err := o.handle(ctx, msg)
	if err != nil {
		return domain.OutboundMessage{}, o.clientError(ctx, err, msg)
	}
	return out, nil
}

func (o *Orchestrator) handle(ctx context.Context, msg domain.InboundMessage) (domain.OutboundMessage, error) {
	utterance, err := Sanitize(msg.Utterance, o.maxUtterance)
	switch {
	case err != nil:
		return domain.OutboundMessage{}, err
	case msg.SessionID == "":
		return domain.OutboundMessage{}, fmt.Errorf("%w: session id is required", domain.ErrInvalidRequest)
	case msg.BotID == "":
		return domain.OutboundMessage{}, fmt.Errorf("%w: bot id is required", domain.ErrInvalidRequest)
	case utterance == "":
		return domain.OutboundMessage{}, fmt.Errorf("%w: message is empty", domain.ErrInvalidRequest)
	}

	cfg, err := o.deps.Configs.Get(ctx, msg.BotID)
	if err != nil {
		return domain.OutboundMessage{}, err
	}

	var out domain.OutboundMessage
	err = o.deps.Sessions.Do(ctx, msg.SessionID, func(ctx context.Context, sess *session.ChatSession) error {
		var err error
		out, err = o.step(ctx, cfg, sess, msg, utterance)
		return err
	})
	return out, err
}

func (o *Orchestrator) step(ctx context.Context, cfg *botconfig.Config, sess *session.ChatSession, msg domain.InboundMessage, utterance string) (domain.OutboundMessage, error) {
	inboundID, err := o.deps.Chats.Save(ctx, domain.ChatRecord{
		ChatSessionID:  sess.ChatSessionID(),
		SessionID:      sess.ID(),
		AccountID:      domain.AnonymousAccountID,
		OwnerID:        cfg.OwnerID(),
		BotID:          cfg.BotID(),
		Message:        utterance,
		PreviousChatID: msg.PreviousChatID,
		CreatedAt:      o.now().UTC(),
	})
	if err != nil {
		return domain.OutboundMessage{}, fmt.Errorf("failed to save inbound chat: %w", err)
	}
	sess.SetLastInboundRef(inboundID)

	tx := domain.Transaction{
		ID:          uuid.NewString(),
		OwnerID:     cfg.OwnerID(),
		TargetBotID: cfg.LaunchInfo().TargetBotID,
		Intent:      domain.IntentNoMatch,
		Utterance:   utterance,
	}

	var res response.Resolution
	if utterance == domain.IntentInitiate {
		if res, err = o.resolver.Initiate(ctx, cfg); err != nil {
			return domain.OutboundMessage{}, err
		}
		tx.Intent, tx.Success = domain.IntentInitiate, true
	} else {
		// A pending conversation consumes the utterance whatever it would match.
		var match domain.MatchResult
		if !sess.IsConversationActive() {
			if match, err = o.matcher.Match(ctx, utterance, cfg); err != nil {
				return domain.OutboundMessage{}, err
			}
		}
		if res, err = o.resolver.Resolve(ctx, utterance, match, sess, cfg); err != nil {
			return domain.OutboundMessage{}, err
		}
		switch {
		case res.Conversation:
			tx.Intent, tx.Success = res.ConversationID, true
		case match.Definite():
			tx.Intent, tx.Success = match.Intent, true
		}
	}

	text, err := o.deps.Renderer.Render(ctx, res.Key, sess.Attributes())
	if err != nil {
		return domain.OutboundMessage{}, fmt.Errorf("failed to render %s %q: %w", res.Key.Kind, res.Key.Ref, err)
	}

	now := o.now().UTC()
	chatID, err := o.deps.Chats.Save(ctx, domain.ChatRecord{
		ChatSessionID:  sess.ChatSessionID(),
		SessionID:      sess.ID(),
		AccountID:      domain.BotAccountID,
		OwnerID:        cfg.OwnerID(),
		BotID:          cfg.BotID(),
		Message:        utterance,
		Response:       text,
		PreviousChatID: inboundID,
		CreatedAt:      now,
	})
	if err != nil {
		return domain.OutboundMessage{}, fmt.Errorf("failed to save outbound chat: %w", err)
	}

	tx.Timestamp = now
	if err := o.deps.Transactions.Save(ctx, tx); err != nil {
		return domain.OutboundMessage{}, fmt.Errorf("failed to save transaction: %w", err)
	}
	if o.hooks.OnTransaction != nil {
		o.hooks.OnTransaction(ctx, &tx)
	}

	o.logger.DebugContext(ctx, "Message handled",
		"session_id", sess.ID(),
		"bot_id", cfg.BotID(),
		"intent", tx.Intent,
		"success", tx.Success,
		"conversation", res.ConversationID,
	)

	return domain.OutboundMessage{
		ResponseText:  text,
		SessionID:     sess.ID(),
		ChatSessionID: sess.ChatSessionID(),
		ChatID:        chatID,
	}, nil
}

// ChatHistory lists the records of a chat session, oldest first.
func (o *Orchestrator) ChatHistory(ctx context.Context, chatSessionID string) ([]domain.ChatRecord, error) {
	if chatSessionID == "" {
		return nil, o.clientError(ctx, fmt.Errorf("%w: chat session id is required", domain.ErrInvalidRequest), domain.InboundMessage{})
	}
	records, err := o.deps.Chats.FindBySessionID(ctx, chatSessionID)
	if err != nil {
		return nil, o.clientError(ctx, err, domain.InboundMessage{})
	}
	return records, nil
}

// AllChats lists every chat record, oldest first.
func (o *Orchestrator) AllChats(ctx context.Context) ([]domain.ChatRecord, error) {
	records, err := o.deps.Chats.FindAll(ctx)
	if err != nil {
		return nil, o.clientError(ctx, err, domain.InboundMessage{})
	}
	return records, nil
}

// clientError translates err and logs the masked ones with their reference code.
func (o *Orchestrator) clientError(ctx context.Context, err error, msg domain.InboundMessage) error {
	ce := domain.ToClientError(err, uuid.NewString())
	level := slog.LevelWarn
	if ce.Internal() {
		level = slog.LevelError
	}
	if errors.Is(err, context.Canceled) {
		level = slog.LevelDebug
	}
	o.logger.Log(ctx, level, "Message failed",
		"reference_code", ce.ReferenceCode,
		"code", string(ce.Code),
		"session_id", msg.SessionID,
		"bot_id", msg.BotID,
		"err", err,
	)
	return ce
}
