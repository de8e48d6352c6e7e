package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/bbkanego/seerbot/pkg/domain"
)

// Feed fans transactions out to the connected event streams.
// Slow subscribers miss events instead of blocking the publisher.
type Feed struct {
	mu   sync.Mutex
	subs map[chan domain.Transaction]struct{}
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{subs: make(map[chan domain.Transaction]struct{})}
}

// Publish has the signature of domain.LifecycleHooks.OnTransaction.
func (f *Feed) Publish(_ context.Context, tx *domain.Transaction) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs {
		select {
		case ch <- *tx:
		default:
		}
	}
}

// Subscribe registers a stream until ctx is done.
func (f *Feed) Subscribe(ctx context.Context) <-chan domain.Transaction {
	ch := make(chan domain.Transaction, 16)
	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		delete(f.subs, ch)
		f.mu.Unlock()
		close(ch)
	}()
	return ch
}

// Handler for GET /api/admin/events (SSE).
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	if s.feed == nil {
		http.Error(w, "event feed disabled", http.StatusNotFound)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events := s.feed.Subscribe(r.Context())
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for tx := range events {
		data, err := json.Marshal(tx)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "event: transaction\ndata: %s\n\n", data)
		flusher.Flush()
	}
}
