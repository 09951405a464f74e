package ports

import (
	"context"

	"shopmetrics/internal/domain"
)

// SessionRepository defines the interface for session persistence.
//
// Failure semantics: I/O errors are returned, never panicked; an absent
// session is (nil, nil) from Load, distinguishable from failure.
type SessionRepository interface {
	// Store serializes and writes the session, resetting the storage TTL.
	Store(ctx context.Context, session *domain.Session) error

	// Load returns the session, or (nil, nil) when the id is unknown or
	// the record has expired.
	Load(ctx context.Context, id string) (*domain.Session, error)

	// Delete removes a session. Deleting an absent id succeeds.
	Delete(ctx context.Context, id string) error

	// DeleteMany removes sessions in one batched operation. An empty
	// input succeeds with zero effect.
	DeleteMany(ctx context.Context, ids []string) error

	// FindByShop returns the sessions currently stored for a shop.
	// Without a secondary shop index the underlying KV store cannot
	// answer this query and the result is always empty.
	FindByShop(ctx context.Context, shop string) ([]*domain.Session, error)
}

// DedupRepository records webhook delivery ids so redeliveries of the
// same delivery are acknowledged without re-running side effects.
type DedupRepository interface {
	// MarkIfFirst records the delivery id and reports whether this call
	// was the first to observe it.
	MarkIfFirst(ctx context.Context, deliveryID string) (bool, error)

	// Release forgets a delivery id so an upstream redelivery is
	// processed again, used after a transient handler failure.
	Release(ctx context.Context, deliveryID string) error
}

// AuditRepository persists webhook envelopes and compliance failures for
// operator review. Insert-only.
type AuditRepository interface {
	LogWebhook(ctx context.Context, event *domain.WebhookEvent, outcome string) error

	// RecordComplianceFailure durably records a failed compliance-topic
	// handler invocation for manual remediation. The webhook is only
	// acknowledged to Shopify once this record exists.
	RecordComplianceFailure(ctx context.Context, event *domain.WebhookEvent, handlerErr error) error
}
