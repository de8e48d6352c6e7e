package session_test

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"testing"
	"time"

	"github.com/bbkanego/seerbot/pkg/domain"
	"github.com/bbkanego/seerbot/pkg/ports"
	"github.com/bbkanego/seerbot/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slowStore simulates latency to provoke race conditions if locking is missing.
type slowStore struct {
	mu    sync.Mutex
	data  map[string]domain.SessionSnapshot
	saves int
}

func newSlowStore() *slowStore {
	return &slowStore{data: make(map[string]domain.SessionSnapshot)}
}

func (s *slowStore) Save(ctx context.Context, sessionID string, snap domain.SessionSnapshot) error {
	time.Sleep(2 * time.Millisecond) // Simulate IO
	s.mu.Lock()
	defer s.mu.Unlock()
	snap.Attributes = maps.Clone(snap.Attributes)
	s.data[sessionID] = snap
	s.saves++
	return nil
}

func (s *slowStore) Load(ctx context.Context, sessionID string) (domain.SessionSnapshot, error) {
	time.Sleep(2 * time.Millisecond) // Simulate IO
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.data[sessionID]
	if !ok {
		return domain.SessionSnapshot{}, domain.ErrSessionNotFound
	}
	snap.Attributes = maps.Clone(snap.Attributes)
	return snap, nil
}

func (s *slowStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

func TestManager_SerializesReadModifyWrite(t *testing.T) {
	store := newSlowStore()
	manager := session.NewManager(store, nil)
	ctx := context.Background()
	id := "race-test"

	var wg sync.WaitGroup
	const writers = 10
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := manager.Do(ctx, id, func(ctx context.Context, sess *session.ChatSession) error {
				v, _ := sess.Attribute("n")
				n, _ := v.(int)
				sess.SetAttribute("n", n+1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	sess, err := manager.Load(ctx, id)
	require.NoError(t, err)
	n, _ := sess.Attribute("n")
	assert.Equal(t, writers, n, "no update may be lost")
}

func TestManager_DoCreatesOnce(t *testing.T) {
	store := newSlowStore()
	manager := session.NewManager(store, nil)
	ctx := context.Background()

	var chatSessions []string
	for i := 0; i < 2; i++ {
		require.NoError(t, manager.Do(ctx, "s1", func(ctx context.Context, sess *session.ChatSession) error {
			chatSessions = append(chatSessions, sess.ChatSessionID())
			return nil
		}))
	}
	require.Len(t, chatSessions, 2)
	assert.Equal(t, chatSessions[0], chatSessions[1], "the second call sees the persisted session")
}

func TestManager_FailedCallbackIsNotPersisted(t *testing.T) {
	store := newSlowStore()
	manager := session.NewManager(store, nil)
	ctx := context.Background()
	boom := errors.New("boom")

	err := manager.Do(ctx, "s1", func(ctx context.Context, sess *session.ChatSession) error {
		sess.SetAttribute("dirty", true)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, store.saves)

	_, err = manager.Load(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestManager_RunsInsideUnitOfWork(t *testing.T) {
	store := newSlowStore()
	var inside bool
	uow := ports.UnitOfWorkFunc(func(ctx context.Context, fn func(ctx context.Context) error) error {
		inside = true
		defer func() { inside = false }()
		return fn(ctx)
	})
	manager := session.NewManager(store, nil, session.WithUnitOfWork(uow))

	require.NoError(t, manager.Do(context.Background(), "s1", func(ctx context.Context, sess *session.ChatSession) error {
		assert.True(t, inside)
		return nil
	}))
	assert.Equal(t, 1, store.saves)
}

func TestManager_LockLifecycle(t *testing.T) {
	manager := session.NewManager(newSlowStore(), nil)
	ctx := context.Background()

	for i := 0; i < 200; i++ {
		sid := fmt.Sprintf("session-%d", i)
		_ = manager.Do(ctx, sid, func(context.Context, *session.ChatSession) error { return nil })
		_ = manager.Delete(ctx, sid)
	}

	assert.Zero(t, manager.ActiveLocks(), "locks must be released once no caller holds them")
}

type fakeLocker struct {
	mu       sync.Mutex
	ttls     []time.Duration
	unlocked int
	fail     error
}

func (l *fakeLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail != nil {
		return nil, l.fail
	}
	l.ttls = append(l.ttls, ttl)
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.unlocked++
		return nil
	}, nil
}

func TestManager_DistributedLocker(t *testing.T) {
	locker := &fakeLocker{}
	manager := session.NewManager(newSlowStore(), nil,
		session.WithLocker(locker),
		session.WithLockTTL(5*time.Second),
	)

	require.NoError(t, manager.Do(context.Background(), "s1", func(context.Context, *session.ChatSession) error { return nil }))
	assert.Equal(t, []time.Duration{5 * time.Second}, locker.ttls)
	assert.Equal(t, 1, locker.unlocked)

	locker.fail = errors.New("redis down")
	called := false
	err := manager.Do(context.Background(), "s1", func(context.Context, *session.ChatSession) error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called)
}
