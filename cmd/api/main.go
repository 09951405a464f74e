package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"shopmetrics/internal/application"
	"shopmetrics/internal/application/webhook_handlers"
	"shopmetrics/internal/config"
	"shopmetrics/internal/domain"
	apiinfra "shopmetrics/internal/infrastructure/api"
	"shopmetrics/internal/infrastructure/kv"
	"shopmetrics/internal/infrastructure/metrics"
	"shopmetrics/internal/infrastructure/pubsub"
	"shopmetrics/internal/infrastructure/repository"
	shopifyinfra "shopmetrics/internal/infrastructure/shopify"
)

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("Warning: .env file not found")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Connect to Redis (the durable KV store for sessions and dedup)
	store, err := kv.NewRedisKV(cfg.RedisAddr, cfg.RedisPassword, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer store.Close()

	// Connect to MongoDB (audit log and compliance failure records)
	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer mongoClient.Disconnect(context.Background())
	db := mongoClient.Database(cfg.MongoDatabase)

	// Initialize repositories
	sessionOpts := []repository.SessionRepositoryOption{}
	if cfg.SessionShopIndex {
		sessionOpts = append(sessionOpts, repository.WithShopIndex())
	}
	sessionRepo := repository.NewSessionRepository(store, logger, sessionOpts...)
	dedupRepo := repository.NewDedupRepository(store)
	auditRepo := repository.NewMongoAuditRepository(db)
	kpiCache := repository.NewKPICache(store)

	// Initialize Shopify client and services
	shopifyClient := shopifyinfra.NewClient(cfg.ShopifyAPIKey, cfg.ShopifyAPISecret, logger)
	installService := application.NewInstallService(shopifyClient, sessionRepo, store, cfg.ShopifyScopes, cfg.AppURL, logger)
	kpiService := application.NewKPIService(shopifyClient, kpiCache, logger)

	// Build the webhook registry once; it is immutable after this point.
	customerHandler := webhook_handlers.NewCustomerHandler(logger, store, kpiCache)
	registry, err := application.NewWebhookRegistry(
		application.HandlerDescriptor{
			Topic:        domain.TopicProductsCreate,
			CallbackPath: "/webhooks/shopify",
			Handler:      webhook_handlers.NewProductHandler(logger, kpiCache),
		},
		application.HandlerDescriptor{
			Topic:        domain.TopicOrdersCreate,
			CallbackPath: "/webhooks/shopify",
			Handler:      webhook_handlers.NewOrderHandler(logger, kpiCache),
		},
		application.HandlerDescriptor{
			Topic:        domain.TopicCustomersDataRequest,
			CallbackPath: "/webhooks/shopify",
			Compliance:   true,
			Handler:      application.WebhookHandlerFunc(customerHandler.HandleDataRequest),
		},
		application.HandlerDescriptor{
			Topic:        domain.TopicCustomersRedact,
			CallbackPath: "/webhooks/shopify",
			Compliance:   true,
			Handler:      application.WebhookHandlerFunc(customerHandler.HandleRedact),
		},
		application.HandlerDescriptor{
			Topic:        domain.TopicShopRedact,
			CallbackPath: "/webhooks/shopify",
			Compliance:   true,
			Handler:      webhook_handlers.NewShopRedactHandler(logger, sessionRepo, kpiCache),
		},
		application.HandlerDescriptor{
			Topic:        domain.TopicAppUninstalled,
			CallbackPath: "/webhooks/shopify",
			Handler:      webhook_handlers.NewAppUninstalledHandler(logger, sessionRepo, kpiCache),
		},
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build webhook registry")
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	dispatcher := application.NewWebhookDispatcher(registry, dedupRepo, auditRepo, m, logger)

	// Dispatch pub/sub with an operator-alerting subscriber for recorded
	// compliance failures.
	dispatchPubSub := pubsub.NewDispatchPubSub(logger)
	alertCh := dispatchPubSub.Subscribe(context.Background(), &pubsub.DispatchFilter{
		Outcomes: []string{string(application.OutcomeComplianceRecorded)},
	})
	go func() {
		for result := range alertCh.Results {
			logger.Error().
				Str("topic", result.Event.Topic).
				Str("shop", result.Event.Shop).
				Str("deliveryId", result.Event.DeliveryID).
				Msg("ALERT: compliance webhook failed, manual remediation required")
		}
	}()

	// HTTP handlers
	verifier := shopifyinfra.NewWebhookVerifier(cfg.ShopifyWebhookSecret)
	webhookHandler := apiinfra.NewWebhookHandler(verifier, dispatcher, auditRepo, dispatchPubSub, logger)
	oauthHandlers := apiinfra.NewOAuthHandlers(installService, cfg.ShopifyAPIKey, logger)
	apiHandlers := apiinfra.NewAPIHandlers(kpiService, shopifyClient, cfg.ShopifyAPIKey, logger)

	// Setup router
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeFile(w, r, "./docs/swagger.json")
	})

	// OAuth routes
	r.Get("/auth/shopify", oauthHandlers.Begin)
	r.Get("/auth/callback", oauthHandlers.Callback)

	// Webhook endpoint
	r.Post("/webhooks/shopify", webhookHandler.ServeHTTP)

	// Authenticated read API
	r.Group(func(r chi.Router) {
		r.Use(apiinfra.RequireSession(sessionRepo, logger))
		r.Get("/api/shop-kpis", apiHandlers.ShopKPIs)
		r.Get("/api/test-shopify", apiHandlers.TestShopify)
		r.Get("/api/shopify/api-key", apiHandlers.APIKey)
	})

	// Embedded app entry points
	r.Get("/", apiinfra.Root)
	r.Get("/embedded", apiinfra.Embedded)

	logger.Info().Str("port", cfg.Port).Msg("Starting API server")
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start server")
	}
}
