package application

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"shopmetrics/internal/domain"
	"shopmetrics/internal/infrastructure/metrics"
	"shopmetrics/internal/ports"
)

// DispatchOutcome describes how a webhook dispatch concluded. Every
// outcome except a retryable error is acknowledged to Shopify.
type DispatchOutcome string

const (
	// OutcomeHandled means the registered handler ran successfully.
	OutcomeHandled DispatchOutcome = "handled"
	// OutcomeDuplicate means the delivery id had already been processed
	// and the handler was not invoked again.
	OutcomeDuplicate DispatchOutcome = "duplicate"
	// OutcomeUnknownTopic means no handler is registered for the topic.
	// Acknowledged anyway so Shopify does not redeliver forever.
	OutcomeUnknownTopic DispatchOutcome = "unknown_topic"
	// OutcomeComplianceRecorded means a compliance handler failed but
	// the failure is durably recorded for manual remediation, so the
	// webhook is acknowledged instead of redelivered.
	OutcomeComplianceRecorded DispatchOutcome = "compliance_recorded"
	// OutcomeFailed means the handler failed. Paired with a retryable
	// error the HTTP layer answers 5xx so Shopify redelivers; with a
	// nil error the failure is permanent and the webhook is acknowledged.
	OutcomeFailed DispatchOutcome = "failed"
)

// WebhookDispatcher authenticates (by trust in the upstream verifier),
// deduplicates, routes, and invokes webhook handlers.
type WebhookDispatcher struct {
	registry *WebhookRegistry
	dedup    ports.DedupRepository
	audit    ports.AuditRepository
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// NewWebhookDispatcher creates a dispatcher over an immutable registry.
func NewWebhookDispatcher(
	registry *WebhookRegistry,
	dedup ports.DedupRepository,
	audit ports.AuditRepository,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *WebhookDispatcher {
	return &WebhookDispatcher{
		registry: registry,
		dedup:    dedup,
		audit:    audit,
		metrics:  m,
		logger:   logger,
	}
}

// Dispatch runs one envelope through the pipeline:
// received -> deduplicated -> routed -> handled -> acknowledged.
//
// A non-nil error is always retryable from the caller's point of view;
// all other outcomes must be acknowledged upstream.
func (d *WebhookDispatcher) Dispatch(ctx context.Context, event *domain.WebhookEvent) (DispatchOutcome, error) {
	d.metrics.WebhooksReceived.WithLabelValues(event.Topic).Inc()

	// The envelope's signature is verified by the HTTP layer before it
	// reaches this component; refuse anything that skipped that gate.
	if !event.Verified {
		return OutcomeFailed, fmt.Errorf("refusing unverified webhook envelope for topic %s", event.Topic)
	}

	first, err := d.dedup.MarkIfFirst(ctx, event.DeliveryID)
	if err != nil {
		// Fail open: processing a duplicate is preferable to dropping a
		// delivery while the dedup store is down. Documented risk.
		d.metrics.DedupStoreFailOpens.Inc()
		d.logger.Warn().Err(err).
			Str("deliveryId", event.DeliveryID).
			Str("topic", event.Topic).
			Msg("Dedup store unavailable, processing without duplicate protection")
		first = true
	}

	if !first {
		d.metrics.WebhookDuplicates.Inc()
		d.logger.Info().
			Str("deliveryId", event.DeliveryID).
			Str("topic", event.Topic).
			Str("shop", event.Shop).
			Msg("Duplicate webhook delivery, acknowledging without reprocessing")
		return d.conclude(event, OutcomeDuplicate), nil
	}

	descriptor, ok := d.registry.Lookup(event.Topic)
	if !ok {
		d.metrics.UnknownTopics.Inc()
		d.logger.Warn().
			Str("topic", event.Topic).
			Str("shop", event.Shop).
			Msg("No handler registered for webhook topic, acknowledging")
		return d.conclude(event, OutcomeUnknownTopic), nil
	}

	if err := descriptor.Handler.Handle(ctx, event); err != nil {
		return d.handleFailure(ctx, event, descriptor, err)
	}

	return d.conclude(event, OutcomeHandled), nil
}

func (d *WebhookDispatcher) handleFailure(
	ctx context.Context,
	event *domain.WebhookEvent,
	descriptor HandlerDescriptor,
	handlerErr error,
) (DispatchOutcome, error) {
	if descriptor.Compliance {
		return d.handleComplianceFailure(ctx, event, handlerErr)
	}

	if IsRetryable(handlerErr) {
		d.metrics.HandlerFailures.WithLabelValues(event.Topic, "transient").Inc()
		// Forget the delivery id so the upstream redelivery is not
		// swallowed as a duplicate.
		if err := d.dedup.Release(ctx, event.DeliveryID); err != nil {
			d.logger.Warn().Err(err).
				Str("deliveryId", event.DeliveryID).
				Msg("Failed to release dedup mark, redelivery may be suppressed until retention expires")
		}
		d.logger.Error().Err(handlerErr).
			Str("topic", event.Topic).
			Str("shop", event.Shop).
			Str("deliveryId", event.DeliveryID).
			Msg("Transient handler failure, requesting redelivery")
		return OutcomeFailed, handlerErr
	}

	// Permanent failure on a non-compliance topic: redelivering the same
	// payload would fail the same way, so acknowledge and log.
	d.metrics.HandlerFailures.WithLabelValues(event.Topic, "permanent").Inc()
	d.logger.Error().Err(handlerErr).
		Str("topic", event.Topic).
		Str("shop", event.Shop).
		Str("deliveryId", event.DeliveryID).
		Msg("Handler failed permanently, acknowledging webhook")
	return d.conclude(event, OutcomeFailed), nil
}

// handleComplianceFailure acknowledges a failed compliance-topic handler
// only after the failure is durably recorded; otherwise redelivery is
// the one remaining safety net and the error is surfaced as retryable.
func (d *WebhookDispatcher) handleComplianceFailure(
	ctx context.Context,
	event *domain.WebhookEvent,
	handlerErr error,
) (DispatchOutcome, error) {
	d.metrics.HandlerFailures.WithLabelValues(event.Topic, "compliance").Inc()

	if err := d.audit.RecordComplianceFailure(ctx, event, handlerErr); err != nil {
		d.logger.Error().Err(err).
			Str("topic", event.Topic).
			Str("shop", event.Shop).
			Str("deliveryId", event.DeliveryID).
			Msg("Failed to record compliance failure, requesting redelivery")
		if relErr := d.dedup.Release(ctx, event.DeliveryID); relErr != nil {
			d.logger.Warn().Err(relErr).
				Str("deliveryId", event.DeliveryID).
				Msg("Failed to release dedup mark after compliance record failure")
		}
		return OutcomeFailed, Retryable(fmt.Errorf("compliance handler failed and failure could not be recorded: %w", handlerErr))
	}

	d.metrics.ComplianceFailures.Inc()
	d.logger.Error().Err(handlerErr).
		Str("topic", event.Topic).
		Str("shop", event.Shop).
		Str("deliveryId", event.DeliveryID).
		Msg("Compliance handler failed, failure recorded for manual remediation")
	return d.conclude(event, OutcomeComplianceRecorded), nil
}

func (d *WebhookDispatcher) conclude(event *domain.WebhookEvent, outcome DispatchOutcome) DispatchOutcome {
	d.metrics.WebhooksDispatched.WithLabelValues(event.Topic, string(outcome)).Inc()
	return outcome
}
