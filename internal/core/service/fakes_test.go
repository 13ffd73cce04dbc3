package service_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cashflow/payment-lifecycle/internal/core"
)

// memoryPaymentRepo is a compare-and-save store keyed by reference
type memoryPaymentRepo struct {
	mu       sync.Mutex
	payments map[string]*core.Payment
	saves    int
}

func newMemoryPaymentRepo() *memoryPaymentRepo {
	return &memoryPaymentRepo{payments: map[string]*core.Payment{}}
}

func (r *memoryPaymentRepo) Create(_ context.Context, p *core.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.payments[p.Reference]; ok {
		return core.ErrDuplicateReference
	}
	now := time.Now().UTC()
	p.Version = 1
	p.CreatedAt = now
	p.UpdatedAt = now
	r.payments[p.Reference] = p.Clone()
	return nil
}

func (r *memoryPaymentRepo) FindByReference(_ context.Context, reference string) (*core.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[reference]
	if !ok {
		return nil, fmt.Errorf("payment with reference %s: %w", reference, core.ErrPaymentNotFound)
	}
	return p.Clone(), nil
}

func (r *memoryPaymentRepo) Save(_ context.Context, p *core.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.payments[p.Reference]
	if !ok {
		return core.ErrPaymentNotFound
	}
	if stored.Version != p.Version {
		return core.ErrConcurrentUpdate
	}
	p.Version++
	p.UpdatedAt = time.Now().UTC()
	r.payments[p.Reference] = p.Clone()
	r.saves++
	return nil
}

func (r *memoryPaymentRepo) get(reference string) *core.Payment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.payments[reference].Clone()
}

func (r *memoryPaymentRepo) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

// fakeCache records calls; getErr and setErr simulate backend failures
type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	ttls    map[string]time.Duration
	gets    int
	getErr  error
	setErr  error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	v, ok := c.entries[key]
	return v, ok, nil
}

func (c *fakeCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[key] = value
	c.ttls[key] = ttl
	return nil
}

func (c *fakeCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *fakeCache) ttl(key string) (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ttl, ok := c.ttls[key]
	return ttl, ok
}

type fakeMessaging struct {
	mu        sync.Mutex
	events    []core.PaymentEvent
	publishFn func(core.PaymentEvent) error
}

func (m *fakeMessaging) PublishPaymentEvent(_ context.Context, event core.PaymentEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishFn != nil {
		if err := m.publishFn(event); err != nil {
			return err
		}
	}
	m.events = append(m.events, event)
	return nil
}

func (m *fakeMessaging) Close() error { return nil }

func (m *fakeMessaging) published() []core.PaymentEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.PaymentEvent, len(m.events))
	copy(out, m.events)
	return out
}
