package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/seu-repo/handover-engine/internal/domain"
	"github.com/seu-repo/handover-engine/internal/ports"
)

// LocalLocker serializes work per key inside one process. Use it only when
// a single instance owns the database.
type LocalLocker struct {
	mu          sync.Mutex
	slots       map[string]*slot
	waitTimeout time.Duration
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker(waitTimeout time.Duration) *LocalLocker {
	return &LocalLocker{
		slots:       make(map[string]*slot),
		waitTimeout: waitTimeout,
	}
}

var _ ports.Locker = (*LocalLocker)(nil)

func (l *LocalLocker) Acquire(ctx context.Context, key string) (ports.Lock, error) {
	s := l.ref(key)

	timer := time.NewTimer(l.waitTimeout)
	defer timer.Stop()

	select {
	case s.ch <- struct{}{}:
		return &localLock{owner: l, key: key, slot: s}, nil
	case <-timer.C:
		l.unref(key, s)
		return nil, domain.ErrBusy
	case <-ctx.Done():
		l.unref(key, s)
		return nil, fmt.Errorf("waiting for lock %s: %w", key, ctx.Err())
	}
}

func (l *LocalLocker) ref(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *LocalLocker) unref(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

type localLock struct {
	owner *LocalLocker
	key   string
	slot  *slot
	once  sync.Once
}

func (l *localLock) Release(ctx context.Context) error {
	l.once.Do(func() {
		<-l.slot.ch
		l.owner.unref(l.key, l.slot)
	})
	return nil
}
