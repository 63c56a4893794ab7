package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/pos-einvoice-cr/internal/application/einvoice"
)

var _ einvoice.Locker = (*MemoryLocker)(nil)

// MemoryLocker lease dentro de un solo proceso (sin Redis configurado).
type MemoryLocker struct {
	mu     sync.Mutex
	leases map[string]memoryLease
	now    func() time.Time
	seq    uint64
}

type memoryLease struct {
	id      uint64
	expires time.Time
}

// NewMemoryLocker crea el locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{leases: map[string]memoryLease{}, now: time.Now}
}

// TryLock implementa einvoice.Locker.
func (l *MemoryLocker) TryLock(_ context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if cur, held := l.leases[key]; held && now.Before(cur.expires) {
		return nil, false, nil
	}
	l.seq++
	id := l.seq
	l.leases[key] = memoryLease{id: id, expires: now.Add(ttl)}

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if cur, held := l.leases[key]; held && cur.id == id {
			delete(l.leases, key)
		}
		return nil
	}, true, nil
}
