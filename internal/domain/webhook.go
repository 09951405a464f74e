package domain

import "time"

// Webhook topics delivered by Shopify that this app subscribes to.
const (
	TopicProductsCreate       = "products/create"
	TopicOrdersCreate         = "orders/create"
	TopicCustomersDataRequest = "customers/data_request"
	TopicCustomersRedact      = "customers/redact"
	TopicShopRedact           = "shop/redact"
	TopicAppUninstalled       = "app/uninstalled"
)

// WebhookEvent is the inbound event envelope. DeliveryID is stable across
// redeliveries of the same logical event and is the dedup key; Shopify
// delivers at-least-once, so the same DeliveryID may arrive more than once.
type WebhookEvent struct {
	Topic      string    `json:"topic" bson:"topic"`
	Shop       string    `json:"shop" bson:"shop"`
	DeliveryID string    `json:"delivery_id" bson:"delivery_id"`
	Payload    []byte    `json:"payload" bson:"payload"`
	Verified   bool      `json:"verified" bson:"verified"`
	ReceivedAt time.Time `json:"received_at" bson:"received_at"`
}
