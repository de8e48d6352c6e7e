package observability

import (
	"context"
	"log/slog"

	"github.com/bbkanego/seerbot/pkg/domain"
)

// Hooks returns lifecycle hooks that log each event at debug level and record it
// in m. Either argument may be nil.
func Hooks(m *Metrics, logger *slog.Logger) domain.LifecycleHooks {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return domain.LifecycleHooks{
		OnStateEnter: func(ctx context.Context, e *domain.StateEvent) {
			logger.DebugContext(ctx, "state_enter", "conversation", e.Conversation, "state", e.State)
			m.StateEntered(e.Conversation, e.State)
		},
		OnConversationStart: func(ctx context.Context, e *domain.StateEvent) {
			logger.DebugContext(ctx, "conversation_start", "conversation", e.Conversation, "state", e.State)
		},
		OnConversationEnd: func(ctx context.Context, e *domain.StateEvent) {
			logger.DebugContext(ctx, "conversation_end", "conversation", e.Conversation, "state", e.State)
		},
		OnMatch: func(ctx context.Context, e *domain.MatchEvent) {
			logger.DebugContext(ctx, "match",
				"bot_id", e.BotID,
				"intent", e.Result.Intent,
				"tier", e.Result.Tier.String(),
				"score", e.Result.Score,
				"greeting", e.Result.Greeting,
			)
			m.Match(e.Result.Tier.String())
		},
		OnTransaction: func(ctx context.Context, tx *domain.Transaction) {
			logger.DebugContext(ctx, "transaction", "intent", tx.Intent, "success", tx.Success)
			m.Transaction(tx.Success)
		},
	}
}
