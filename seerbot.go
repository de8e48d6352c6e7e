package seerbot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bbkanego/seerbot/internal/adapters/memory"
	"github.com/bbkanego/seerbot/internal/botconfig"
	"github.com/bbkanego/seerbot/internal/logging"
	"github.com/bbkanego/seerbot/internal/nlp"
	"github.com/bbkanego/seerbot/internal/render"
	"github.com/bbkanego/seerbot/internal/runtime"
	"github.com/bbkanego/seerbot/pkg/domain"
	"github.com/bbkanego/seerbot/pkg/observability"
	"github.com/bbkanego/seerbot/pkg/ports"
	"github.com/bbkanego/seerbot/pkg/registry"
	"github.com/bbkanego/seerbot/pkg/session"
)

// Reply is the answer to one inbound message.
type Reply = domain.OutboundMessage

// Bot is the high-level entry point of the dialogue engine.
// It wires the config cache, session manager and orchestrator over the given stores.
type Bot struct {
	orch      *runtime.Orchestrator
	cache     *botconfig.Cache
	sessions  *session.Manager
	templates *registry.Registry
	logger    *slog.Logger
}

type settings struct {
	launch       ports.LaunchInfoStore
	intents      ports.IntentStore
	chats        ports.ChatStore
	transactions ports.TransactionStore
	sessionStore ports.SessionStore
	locker       ports.DistributedLocker
	uow          ports.UnitOfWork
	models       ports.ModelSource
	loader       ports.ModelLoader
	renderer     ports.TemplateRenderer
	templates    *registry.Registry
	metrics      *observability.Metrics
	hooks        *domain.LifecycleHooks
	logger       *slog.Logger

	maxEntries   int
	idleTimeout  time.Duration
	buildTimeout time.Duration
	maxUtterance int
}

// Option configures a Bot.
type Option func(*settings)

// WithCatalog sets the launch info and intent stores. It defaults to an empty in-memory catalog.
func WithCatalog(launch ports.LaunchInfoStore, intents ports.IntentStore) Option {
	return func(s *settings) {
		s.launch, s.intents = launch, intents
	}
}

// WithChatStore sets where chat records are written.
func WithChatStore(chats ports.ChatStore) Option {
	return func(s *settings) {
		s.chats = chats
	}
}

// WithTransactionStore sets where audit transactions are written.
func WithTransactionStore(txs ports.TransactionStore) Option {
	return func(s *settings) {
		s.transactions = txs
	}
}

// WithSessionStore sets where chat sessions are persisted between messages.
func WithSessionStore(store ports.SessionStore) Option {
	return func(s *settings) {
		s.sessionStore = store
	}
}

// WithLocker serializes each session across processes, in addition to the local lock.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(s *settings) {
		s.locker = locker
	}
}

// WithUnitOfWork groups the writes of each message. The stores must share its backend.
func WithUnitOfWork(uow ports.UnitOfWork) Option {
	return func(s *settings) {
		s.uow = uow
	}
}

// WithModelSource sets where trained models are fetched from.
// The default reads local files and fetches http(s) references.
func WithModelSource(src ports.ModelSource) Option {
	return func(s *settings) {
		s.models = src
	}
}

// WithModelLoader replaces the built-in YAML model loader.
func WithModelLoader(loader ports.ModelLoader) Option {
	return func(s *settings) {
		s.loader = loader
	}
}

// WithRenderer replaces the built-in JSON renderer.
func WithRenderer(r ports.TemplateRenderer) Option {
	return func(s *settings) {
		s.renderer = r
	}
}

// WithTemplates sets the conversation registry. The default binds "Reservation"
// to the reservation conversation.
func WithTemplates(r *registry.Registry) Option {
	return func(s *settings) {
		s.templates = r
	}
}

// WithMetrics records engine metrics in m.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *settings) {
		s.metrics = m
	}
}

// WithLifecycleHooks replaces the hooks derived from the logger and metrics.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *settings) {
		s.hooks = &hooks
	}
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithCacheLimits bounds the bot config cache. Zero values keep the defaults.
func WithCacheLimits(maxEntries int, idle time.Duration) Option {
	return func(s *settings) {
		s.maxEntries, s.idleTimeout = maxEntries, idle
	}
}

// WithBuildTimeout bounds each bot config build.
func WithBuildTimeout(d time.Duration) Option {
	return func(s *settings) {
		s.buildTimeout = d
	}
}

// WithMaxUtterance bounds the bytes of one utterance. Longer messages are rejected
// as bad requests. Zero keeps the default of 4096.
func WithMaxUtterance(n int) Option {
	return func(s *settings) {
		s.maxUtterance = n
	}
}

// DefaultTemplates returns a registry binding every built-in conversation to its intent.
func DefaultTemplates() *registry.Registry {
	r, err := registry.FromBindings(map[string]string{"Reservation": "reservation"})
	if err != nil {
		panic(err)
	}
	return r
}

// New creates a Bot. Without options it runs entirely in memory.
func New(opts ...Option) (*Bot, error) {
	s := &settings{}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.defaults(); err != nil {
		return nil, err
	}

	hooks := observability.Hooks(s.metrics, s.logger)
	if s.hooks != nil {
		hooks = *s.hooks
	}

	cacheOpts := []botconfig.Option{botconfig.WithLogger(s.logger), botconfig.WithMetrics(s.metrics)}
	if s.maxEntries > 0 {
		cacheOpts = append(cacheOpts, botconfig.WithMaxEntries(s.maxEntries))
	}
	if s.idleTimeout > 0 {
		cacheOpts = append(cacheOpts, botconfig.WithIdleTimeout(s.idleTimeout))
	}
	if s.buildTimeout > 0 {
		cacheOpts = append(cacheOpts, botconfig.WithBuildTimeout(s.buildTimeout))
	}
	builder := botconfig.NewBuilder(s.launch, s.intents, s.models, s.loader)
	cache := botconfig.NewCache(builder.Build, cacheOpts...)

	managerOpts := []session.ManagerOption{
		session.WithSessionHooks(hooks),
		session.WithLogger(s.logger),
		session.WithUnitOfWork(s.uow),
	}
	if s.locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(s.locker))
	}
	sessions := session.NewManager(s.sessionStore, s.templates, managerOpts...)

	orch, err := runtime.New(runtime.Deps{
		Configs:      cache,
		Sessions:     sessions,
		Intents:      s.intents,
		Chats:        s.chats,
		Transactions: s.transactions,
		Renderer:     s.renderer,
	}, runtime.WithHooks(hooks), runtime.WithLogger(s.logger), runtime.WithMaxUtterance(s.maxUtterance))
	if err != nil {
		return nil, err
	}

	return &Bot{
		orch:      orch,
		cache:     cache,
		sessions:  sessions,
		templates: s.templates,
		logger:    s.logger,
	}, nil
}

func (s *settings) defaults() error {
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	if s.launch == nil || s.intents == nil {
		catalog := memory.NewCatalog()
		if s.launch == nil {
			s.launch = catalog
		}
		if s.intents == nil {
			s.intents = catalog
		}
	}
	if s.chats == nil {
		s.chats = memory.NewChatStore()
	}
	if s.transactions == nil {
		s.transactions = memory.NewTransactionStore()
	}
	if s.sessionStore == nil {
		s.sessionStore = memory.NewSessionStore()
	}
	if s.uow == nil {
		s.uow = ports.NoTransaction
	}
	if s.models == nil {
		s.models = nlp.NewRouter(nlp.NewFileSource(".")).
			Handle(nlp.NewHTTPSource(nlp.WithSourceLogger(s.logger)), "http", "https")
	}
	if s.loader == nil {
		s.loader = nlp.NewLoader()
	}
	if s.renderer == nil {
		r, err := render.New()
		if err != nil {
			return fmt.Errorf("failed to load built-in messages: %w", err)
		}
		s.renderer = r
	}
	if s.templates == nil {
		s.templates = DefaultTemplates()
	}
	return nil
}

// HandleInboundMessage answers one utterance of a visitor.
//
// Errors are *domain.ClientError values. Internal failures are logged with the
// reference code they carry and never expose their cause to the client.
func (b *Bot) HandleInboundMessage(ctx context.Context, sessionID, botID, utterance, previousChatID string) (Reply, error) {
	return b.orch.HandleInboundMessage(ctx, domain.InboundMessage{
		SessionID:      sessionID,
		BotID:          botID,
		Utterance:      utterance,
		PreviousChatID: previousChatID,
	})
}

// InvalidateBotConfig drops the cached configuration of botID. A build already in
// flight completes for its callers but is not cached.
func (b *Bot) InvalidateBotConfig(botID string) {
	b.cache.Invalidate(botID)
	b.logger.Info("Bot config invalidated", "bot_id", botID)
}

// InvalidateAllBotConfigs drops every cached configuration.
func (b *Bot) InvalidateAllBotConfigs() {
	b.cache.InvalidateAll()
	b.logger.Info("All bot configs invalidated")
}

// ChatHistory lists the records of a chat session, oldest first.
func (b *Bot) ChatHistory(ctx context.Context, chatSessionID string) ([]domain.ChatRecord, error) {
	return b.orch.ChatHistory(ctx, chatSessionID)
}

// AllChats lists every chat record, oldest first.
func (b *Bot) AllChats(ctx context.Context) ([]domain.ChatRecord, error) {
	return b.orch.AllChats(ctx)
}

// LaunchInfo returns the deployment metadata of botID, building its config if needed.
func (b *Bot) LaunchInfo(ctx context.Context, botID string) (domain.LaunchInfo, error) {
	cfg, err := b.cache.Get(ctx, botID)
	if err != nil {
		return domain.LaunchInfo{}, err
	}
	return cfg.LaunchInfo(), nil
}

// Templates returns the conversation registry.
func (b *Bot) Templates() *registry.Registry { return b.templates }

// Sessions returns the session manager.
func (b *Bot) Sessions() *session.Manager { return b.sessions }

// CachedConfigs returns the number of cached bot configurations.
func (b *Bot) CachedConfigs() int { return b.cache.Len() }

// RunJanitor sweeps idle bot configs every interval until ctx is done.
func (b *Bot) RunJanitor(ctx context.Context, interval time.Duration) {
	b.cache.Run(ctx, interval)
}
