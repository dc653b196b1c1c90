package outbox

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

type fakeStore struct {
	mu      sync.Mutex
	pending []Event
	sent    []int64
	failed  []int64
}

func (s *fakeStore) LockBatch(_ context.Context, _ string, _ int, _ time.Duration) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch := s.pending
	s.pending = nil
	return batch, nil
}

func (s *fakeStore) MarkSent(_ context.Context, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, ids...)
	return nil
}

func (s *fakeStore) MarkFailed(_ context.Context, id int64, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = append(s.failed, id)
	return nil
}

func (s *fakeStore) ExtendLease(_ context.Context, _ string, _ []int64, _ time.Duration) error {
	return nil
}

// flakyProducer fails for one aggregate id and accepts the rest.
type flakyProducer struct {
	mu     sync.Mutex
	reject string
	keys   []string
}

func (p *flakyProducer) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range msgs {
		if string(m.Key) == p.reject {
			return errors.New("partition offline")
		}
		p.keys = append(p.keys, string(m.Key))
	}
	return nil
}

func TestRelaySweepMarksOutcomes(t *testing.T) {
	store := &fakeStore{pending: []Event{
		{ID: 1, AggregateID: "order-1", Type: "OrderPlaced"},
		{ID: 2, AggregateID: "order-2", Type: "OrderPlaced"},
		{ID: 3, AggregateID: "order-3", Type: "OrderPlaced"},
	}}
	producer := &flakyProducer{reject: "order-2"}
	log := slog.New(slog.DiscardHandler)
	relay := NewRelay(log, store, NewDispatcher(log, producer, "order.events"), "relay-test")

	if err := relay.sweep(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	if want := []int64{1, 3}; len(store.sent) != 2 || store.sent[0] != want[0] || store.sent[1] != want[1] {
		t.Errorf("sent = %v, want %v", store.sent, want)
	}
	if len(store.failed) != 1 || store.failed[0] != 2 {
		t.Errorf("failed = %v, want [2]", store.failed)
	}
}

func TestRelayStopsOnContextCancel(t *testing.T) {
	store := &fakeStore{}
	log := slog.New(slog.DiscardHandler)
	relay := NewRelay(log, store, NewDispatcher(log, &flakyProducer{}, "order.events"), "relay-test")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop after cancel")
	}
}
