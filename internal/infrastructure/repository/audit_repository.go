package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"shopmetrics/internal/domain"
	"shopmetrics/internal/ports"
)

// MongoAuditRepository implements AuditRepository using MongoDB. Webhook
// envelopes and compliance failures are insert-only records kept for
// operator review; compliance failures in particular are the durable
// trail that lets a failed erasure/export be remediated by hand.
type MongoAuditRepository struct {
	webhooksCollection            *mongo.Collection
	complianceFailuresCollection  *mongo.Collection
}

type webhookEventDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	Topic      string             `bson:"topic"`
	Shop       string             `bson:"shop"`
	DeliveryID string             `bson:"delivery_id"`
	Payload    []byte             `bson:"payload"`
	Verified   bool               `bson:"verified"`
	Outcome    string             `bson:"outcome"`
	ReceivedAt time.Time          `bson:"received_at"`
	CreatedAt  time.Time          `bson:"created_at"`
}

type complianceFailureDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	Topic      string             `bson:"topic"`
	Shop       string             `bson:"shop"`
	DeliveryID string             `bson:"delivery_id"`
	Payload    []byte             `bson:"payload"`
	Error      string             `bson:"error"`
	Resolved   bool               `bson:"resolved"`
	CreatedAt  time.Time          `bson:"created_at"`
}

// NewMongoAuditRepository creates a new MongoDB audit repository.
func NewMongoAuditRepository(db *mongo.Database) ports.AuditRepository {
	return &MongoAuditRepository{
		webhooksCollection:           db.Collection("webhook_events"),
		complianceFailuresCollection: db.Collection("compliance_failures"),
	}
}

// LogWebhook logs a received webhook envelope and its dispatch outcome.
func (r *MongoAuditRepository) LogWebhook(ctx context.Context, event *domain.WebhookEvent, outcome string) error {
	doc := webhookEventDoc{
		ID:         primitive.NewObjectID(),
		Topic:      event.Topic,
		Shop:       event.Shop,
		DeliveryID: event.DeliveryID,
		Payload:    event.Payload,
		Verified:   event.Verified,
		Outcome:    outcome,
		ReceivedAt: event.ReceivedAt,
		CreatedAt:  time.Now(),
	}

	if _, err := r.webhooksCollection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to log webhook: %w", err)
	}
	return nil
}

// RecordComplianceFailure durably records a failed compliance handler
// invocation for manual remediation.
func (r *MongoAuditRepository) RecordComplianceFailure(ctx context.Context, event *domain.WebhookEvent, handlerErr error) error {
	doc := complianceFailureDoc{
		ID:         primitive.NewObjectID(),
		Topic:      event.Topic,
		Shop:       event.Shop,
		DeliveryID: event.DeliveryID,
		Payload:    event.Payload,
		Error:      handlerErr.Error(),
		Resolved:   false,
		CreatedAt:  time.Now(),
	}

	if _, err := r.complianceFailuresCollection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to record compliance failure: %w", err)
	}
	return nil
}
