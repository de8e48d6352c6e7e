package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bbkanego/seerbot/internal/logging"
	"github.com/bbkanego/seerbot/pkg/domain"
	"github.com/bbkanego/seerbot/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed session lock survives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates session access, ensuring safe concurrent operations.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store     ports.SessionStore
	templates Templates

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	uow     ports.UnitOfWork
	hooks   domain.LifecycleHooks
	logger  *slog.Logger
}

// ManagerOption configures the Manager.
type ManagerOption func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) ManagerOption {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks.
func WithLockTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithUnitOfWork runs load, callback and save of Do inside one unit of work.
func WithUnitOfWork(uow ports.UnitOfWork) ManagerOption {
	return func(m *Manager) {
		if uow != nil {
			m.uow = uow
		}
	}
}

// WithSessionHooks registers hooks on every session the manager creates or restores.
func WithSessionHooks(hooks domain.LifecycleHooks) ManagerOption {
	return func(m *Manager) {
		m.hooks = hooks
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new Session Manager with the given persistence store.
func NewManager(store ports.SessionStore, templates Templates, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:     store,
		templates: templates,
		locks:     make(map[string]*lockEntry),
		lockTTL:   DefaultLockTTL,
		uow:       ports.NoTransaction,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// Do loads the session (creating it when absent), calls fn with it while holding
// the session lock, and persists the session if fn succeeds. A failing fn leaves
// the stored session untouched.
func (m *Manager) Do(ctx context.Context, sessionID string, fn func(ctx context.Context, sess *ChatSession) error) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.uow.Do(ctx, func(ctx context.Context) error {
			sess, err := m.load(ctx, sessionID)
			if err != nil {
				return err
			}
			if err := fn(ctx, sess); err != nil {
				return err
			}
			if err := m.store.Save(ctx, sessionID, sess.Snapshot()); err != nil {
				return fmt.Errorf("failed to save session: %w", err)
			}
			return nil
		})
	})
}

func (m *Manager) load(ctx context.Context, sessionID string) (*ChatSession, error) {
	snap, err := m.store.Load(ctx, sessionID)
	if errors.Is(err, domain.ErrNotFound) {
		return New(sessionID, m.templates, WithHooks(m.hooks)), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	sess, err := Restore(snap, m.templates, WithHooks(m.hooks))
	if errors.Is(err, ErrStaleConversation) {
		m.logger.Warn("Dropping persisted conversation", "session_id", sessionID, "err", err)
		return sess, nil
	}
	return sess, err
}

// Load retrieves an existing session from the store.
func (m *Manager) Load(ctx context.Context, sessionID string) (*ChatSession, error) {
	var sess *ChatSession
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		snap, err := m.store.Load(ctx, sessionID)
		if err != nil {
			return err
		}
		sess, err = Restore(snap, m.templates, WithHooks(m.hooks))
		if errors.Is(err, ErrStaleConversation) {
			return nil
		}
		return err
	})
	return sess, err
}

// Delete removes the session from the store.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Delete(ctx, sessionID)
	})
}

// WithLock executes a function while holding the lock for the session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			// The caller's ctx may already be cancelled; the release must still go out.
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// ActiveLocks returns the number of sessions currently holding or waiting on a lock.
func (m *Manager) ActiveLocks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
