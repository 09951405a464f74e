package repository

import (
	"context"
	"fmt"
	"time"

	"shopmetrics/internal/ports"
)

const (
	// DedupRetention bounds how long delivery ids are remembered.
	// Shopify stops redelivering long before this window closes.
	DedupRetention = 48 * time.Hour

	dedupKeyPrefix = "webhook:delivery:"
)

// DedupRepository records webhook delivery ids in the KV store so
// redeliveries short-circuit to an acknowledgement. SetNX makes the
// first-writer decision atomic under concurrent deliveries of the same
// id.
type DedupRepository struct {
	kv        ports.KV
	retention time.Duration
}

// NewDedupRepository creates a KV-backed dedup repository.
func NewDedupRepository(kv ports.KV) *DedupRepository {
	return &DedupRepository{
		kv:        kv,
		retention: DedupRetention,
	}
}

func dedupKey(deliveryID string) string {
	return dedupKeyPrefix + deliveryID
}

// MarkIfFirst records the delivery id and reports whether this call was
// the first to observe it.
func (r *DedupRepository) MarkIfFirst(ctx context.Context, deliveryID string) (bool, error) {
	if deliveryID == "" {
		// No delivery id means no dedup key; treat as first so the
		// event is still processed.
		return true, nil
	}

	first, err := r.kv.SetNX(ctx, dedupKey(deliveryID), []byte("1"), r.retention)
	if err != nil {
		return false, fmt.Errorf("failed to mark delivery %s: %w", deliveryID, err)
	}
	return first, nil
}

// Release forgets a delivery id so the next redelivery is processed
// again. Used after a transient handler failure, before asking Shopify
// to retry.
func (r *DedupRepository) Release(ctx context.Context, deliveryID string) error {
	if deliveryID == "" {
		return nil
	}
	if err := r.kv.Del(ctx, dedupKey(deliveryID)); err != nil {
		return fmt.Errorf("failed to release delivery %s: %w", deliveryID, err)
	}
	return nil
}
