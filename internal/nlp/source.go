package nlp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bbkanego/seerbot/internal/logging"
	"github.com/bbkanego/seerbot/pkg/domain"
	"github.com/bbkanego/seerbot/pkg/ports"
	"github.com/sony/gobreaker"
)

// maxModelSize bounds the bytes read for one model.
const maxModelSize = 32 << 20

// FileSource reads models from a directory.
type FileSource struct {
	root string
}

// NewFileSource creates a source rooted at dir.
func NewFileSource(dir string) *FileSource {
	return &FileSource{root: dir}
}

// Fetch reads ref relative to the root. "file:" prefixes are accepted; the path
// must stay inside the root.
func (s *FileSource) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rel := strings.TrimPrefix(strings.TrimPrefix(ref, "file://"), "file:")
	rel = filepath.FromSlash(rel)
	if !filepath.IsLocal(rel) {
		return nil, fmt.Errorf("model path %q escapes the model directory", ref)
	}
	data, err := os.ReadFile(filepath.Join(s.root, rel))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("model %q: %w", ref, domain.ErrNotFound)
	}
	return data, err
}

// StaticSource serves models from memory. Tests and the REPL use it.
type StaticSource map[string][]byte

func (s StaticSource) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, ok := s[ref]
	if !ok {
		return nil, fmt.Errorf("model %q: %w", ref, domain.ErrNotFound)
	}
	return data, nil
}

// HTTPSource downloads models. Requests go through a circuit breaker so an
// unreachable model server fails fast instead of stalling every config build.
type HTTPSource struct {
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// HTTPOption configures an HTTPSource.
type HTTPOption func(*HTTPSource)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPSource) {
		s.client = c
	}
}

// WithSourceLogger configures the logger for breaker state changes.
func WithSourceLogger(logger *slog.Logger) HTTPOption {
	return func(s *HTTPSource) {
		s.logger = logger
	}
}

// NewHTTPSource creates a breaker-guarded HTTP model source.
func NewHTTPSource(opts ...HTTPOption) *HTTPSource {
	s := &HTTPSource{
		client: &http.Client{Timeout: 20 * time.Second},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "model-source",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			s.logger.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return s
}

// Fetch downloads ref, which must be an http or https URL.
func (s *HTTPSource) Fetch(ctx context.Context, ref string) ([]byte, error) {
	out, err := s.breaker.Execute(func() (interface{}, error) {
		return s.get(ctx, ref)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("model source unavailable: %w", err)
		}
		return nil, err
	}
	return out.([]byte), nil
}

func (s *HTTPSource) get(ctx context.Context, ref string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid model url %q: %w", ref, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("model %q: %w", ref, domain.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download model %q: status %d", ref, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxModelSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read model: %w", err)
	}
	if len(data) > maxModelSize {
		return nil, fmt.Errorf("model %q exceeds %d bytes", ref, maxModelSize)
	}
	return data, nil
}

// Router dispatches by URL scheme. References without a scheme go to the
// fallback source.
type Router struct {
	schemes  map[string]ports.ModelSource
	fallback ports.ModelSource
}

// NewRouter creates a router whose unscheme'd references go to fallback.
func NewRouter(fallback ports.ModelSource) *Router {
	return &Router{schemes: make(map[string]ports.ModelSource), fallback: fallback}
}

// Handle registers src for the given schemes.
func (r *Router) Handle(src ports.ModelSource, schemes ...string) *Router {
	for _, s := range schemes {
		r.schemes[strings.ToLower(s)] = src
	}
	return r
}

func (r *Router) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if u, err := url.Parse(ref); err == nil && u.Scheme != "" {
		if src, ok := r.schemes[strings.ToLower(u.Scheme)]; ok {
			return src.Fetch(ctx, ref)
		}
		if len(u.Scheme) > 1 {
			return nil, fmt.Errorf("no model source for scheme %q", u.Scheme)
		}
	}
	if r.fallback == nil {
		return nil, fmt.Errorf("no model source for %q", ref)
	}
	return r.fallback.Fetch(ctx, ref)
}
