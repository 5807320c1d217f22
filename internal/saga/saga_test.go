package saga

import (
	"context"
	"sync"

	"coachpay/internal/core/domain"
	"coachpay/internal/core/ports"

	"github.com/google/uuid"
)

// --- In-Memory Saga Repo ---

type fakeSagaRepo struct {
	mu        sync.RWMutex
	instances map[uuid.UUID]*domain.SagaInstance
}

func newFakeSagaRepo() *fakeSagaRepo {
	return &fakeSagaRepo{instances: make(map[uuid.UUID]*domain.SagaInstance)}
}

func (r *fakeSagaRepo) Get(ctx context.Context, correlationID uuid.UUID) (*domain.SagaInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.instances[correlationID]
	if !ok {
		return nil, nil
	}
	cp := *i
	return &cp, nil
}

func (r *fakeSagaRepo) Upsert(ctx context.Context, instance *domain.SagaInstance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *instance
	r.instances[instance.CorrelationID] = &cp
	return nil
}

// --- Recording Publisher ---

type published struct {
	Topic string
	Key   uuid.UUID
	Event any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (p *fakePublisher) Publish(ctx context.Context, topic string, key uuid.UUID, event any) error {
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{Topic: topic, Key: key, Event: event})
	return nil
}

func (p *fakePublisher) byTopic(topic string) []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []published
	for _, e := range p.events {
		if e.Topic == topic {
			out = append(out, e)
		}
	}
	return out
}

// --- Scripted Checkout ---

type fakeCheckout struct {
	artifacts *ports.CheckoutArtifacts
	journalID uuid.UUID
	err       error
	calls     int
}

func (c *fakeCheckout) Initiate(ctx context.Context, req ports.CheckoutRequest) (*ports.CheckoutArtifacts, uuid.UUID, error) {
	c.calls++
	if c.err != nil {
		return nil, uuid.Nil, c.err
	}
	return c.artifacts, c.journalID, nil
}
