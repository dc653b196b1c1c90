package outbox

import (
	"context"
	"log/slog"
	"time"
)

// Store is the persistence side of the relay. LockBatch leases pending
// events to this relay instance so multiple replicas can run concurrently.
type Store interface {
	LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]Event, error)
	MarkSent(ctx context.Context, ids []int64) error
	MarkFailed(ctx context.Context, id int64, errMsg string) error
	ExtendLease(ctx context.Context, relayID string, ids []int64, lease time.Duration) error
}

// Relay polls the outbox table and hands leased events to the dispatcher.
// An event that fails to dispatch is marked failed and retried on a later
// sweep; successfully dispatched events are marked sent in one batch.
type Relay struct {
	log       *slog.Logger
	store     Store
	dispatch  *Dispatcher
	relayID   string
	batchSize int
	interval  time.Duration
	lease     time.Duration
}

func NewRelay(log *slog.Logger, store Store, dispatch *Dispatcher, relayID string) *Relay {
	return &Relay{
		log:       log,
		store:     store,
		dispatch:  dispatch,
		relayID:   relayID,
		batchSize: 100,
		interval:  500 * time.Millisecond,
		lease:     5 * time.Second,
	}
}

func (r *Relay) Run(ctx context.Context) error {
	t := time.NewTicker(r.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("relay stopping", "relay_id", r.relayID)
			return nil
		case <-t.C:
			if err := r.sweep(ctx); err != nil {
				r.log.Error("relay sweep failed", "relay_id", r.relayID, "err", err)
			}
		}
	}
}

func (r *Relay) sweep(ctx context.Context) error {
	events, err := r.store.LockBatch(ctx, r.relayID, r.batchSize, r.lease)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	sent := make([]int64, 0, len(events))
	for _, e := range events {
		if err := r.dispatch.Dispatch(ctx, e); err != nil {
			_ = r.store.MarkFailed(ctx, e.ID, err.Error())
			continue
		}
		sent = append(sent, e.ID)
	}
	if len(sent) == 0 {
		return nil
	}
	return r.store.MarkSent(ctx, sent)
}
