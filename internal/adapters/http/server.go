// Package http exposes the dialogue core over a JSON API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/bbkanego/seerbot/internal/logging"
	"github.com/bbkanego/seerbot/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

const (
	// SessionCookie carries the visitor's session id.
	SessionCookie = "SEERBOT_SESSION"

	HeaderBotID      = "X-Bot-Id"
	HeaderOrigin     = "X-Customer-Origin"
	HeaderAdminToken = "X-Admin-Token"
)

// Service is the dialogue core as the HTTP layer sees it. *seerbot.Bot implements it.
type Service interface {
	HandleInboundMessage(ctx context.Context, sessionID, botID, utterance, previousChatID string) (domain.OutboundMessage, error)
	LaunchInfo(ctx context.Context, botID string) (domain.LaunchInfo, error)
	ChatHistory(ctx context.Context, chatSessionID string) ([]domain.ChatRecord, error)
	AllChats(ctx context.Context) ([]domain.ChatRecord, error)
	InvalidateBotConfig(botID string)
	InvalidateAllBotConfigs()
}

// Server holds the handlers of the API.
type Server struct {
	svc         Service
	logger      *slog.Logger
	adminToken  string
	corsOrigins []string
	limiter     *rateLimiter
	gatherer    prometheus.Gatherer
	feed        *Feed
	secure      bool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithAdminToken enables the admin routes. Without a token they always answer 401.
func WithAdminToken(token string) Option {
	return func(s *Server) {
		s.adminToken = token
	}
}

// WithCORSOrigins sets the browser origins allowed by CORS.
func WithCORSOrigins(origins ...string) Option {
	return func(s *Server) {
		s.corsOrigins = origins
	}
}

// WithRateLimit limits each client IP on the chat routes. A zero rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		if rps <= 0 {
			s.limiter = nil
			return
		}
		s.limiter = newRateLimiter(rate.Limit(rps), burst)
	}
}

// WithMetrics serves the gatherer on /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithFeed streams the transactions published to feed on /api/admin/events.
func WithFeed(feed *Feed) Option {
	return func(s *Server) {
		s.feed = feed
	}
}

// WithSecureCookies marks the session cookie Secure.
func WithSecureCookies(secure bool) Option {
	return func(s *Server) {
		s.secure = secure
	}
}

// NewServer creates a Server over svc.
func NewServer(svc Service, opts ...Option) *Server {
	s := &Server{
		svc:         svc,
		logger:      logging.NewNop(),
		corsOrigins: []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLog)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", HeaderBotID, HeaderOrigin, HeaderAdminToken},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if s.limiter != nil {
				r.Use(s.rateLimit)
			}
			r.Post("/chats", s.postChat)
			r.Get("/chats/{chatSessionId}", s.getChatHistory)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Get("/chats", s.getAllChats)
			r.Post("/admin/cache/invalidate", s.invalidateAll)
			r.Post("/admin/cache/invalidate/{botId}", s.invalidateBot)
			r.Get("/admin/events", s.streamEvents)
		})
	})

	return r
}

// HTTPServer wraps Handler in an http.Server with conservative timeouts.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"took", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
