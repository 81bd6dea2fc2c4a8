// Package lock provides short-lived exclusive leases keyed by string, used to
// keep one run in flight per contact.
package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// ErrHeld is returned by Acquire when another holder owns the key.
var ErrHeld = eris.New("lock: key is held")

// Locker hands out leases.
type Locker interface {
	// Acquire takes key for at most ttl. It never waits: a held key fails
	// immediately with ErrHeld.
	Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error)
}

// Lease is an acquired key. Release is safe to call more than once and never
// removes a key that has since been taken by someone else.
type Lease struct {
	Key   string
	Token string

	release func(ctx context.Context) error
	once    sync.Once
	err     error
}

// Release gives the key back.
func (l *Lease) Release(ctx context.Context) error {
	if l == nil {
		return nil
	}
	l.once.Do(func() { l.err = l.release(ctx) })
	return l.err
}

func newToken() string {
	return uuid.NewString()
}

// Memory is an in-process Locker for single-instance deployments and tests.
type Memory struct {
	mu   sync.Mutex
	held map[string]memoryEntry
	now  func() time.Time
}

type memoryEntry struct {
	token   string
	expires time.Time
}

// NewMemory creates an empty in-process locker.
func NewMemory() *Memory {
	return &Memory{held: make(map[string]memoryEntry), now: time.Now}
}

func (m *Memory) Acquire(_ context.Context, key string, ttl time.Duration) (*Lease, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if e, ok := m.held[key]; ok && now.Before(e.expires) {
		return nil, ErrHeld
	}
	token := newToken()
	m.held[key] = memoryEntry{token: token, expires: now.Add(ttl)}

	return &Lease{
		Key:   key,
		Token: token,
		release: func(context.Context) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			if e, ok := m.held[key]; ok && e.token == token {
				delete(m.held, key)
			}
			return nil
		},
	}, nil
}
