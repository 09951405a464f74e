package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"shopmetrics/internal/domain"
	"shopmetrics/internal/ports"
)

const (
	oauthStateKeyPrefix = "oauth:state:"
	oauthStateTTL       = 10 * time.Minute
)

// InstallService coordinates the OAuth install handshake. The
// cryptographic exchange itself lives in the Shopify client; this
// service owns the state nonce and the session write, which is the only
// state-affecting step of an install.
type InstallService struct {
	client   ports.ShopifyClient
	sessions ports.SessionRepository
	kv       ports.KV
	scopes   []string
	appURL   string
	logger   zerolog.Logger
}

// NewInstallService creates a new install orchestrator.
func NewInstallService(
	client ports.ShopifyClient,
	sessions ports.SessionRepository,
	kv ports.KV,
	scopes []string,
	appURL string,
	logger zerolog.Logger,
) *InstallService {
	return &InstallService{
		client:   client,
		sessions: sessions,
		kv:       kv,
		scopes:   scopes,
		appURL:   appURL,
		logger:   logger,
	}
}

type oauthState struct {
	Shop      string    `json:"shop"`
	CreatedAt time.Time `json:"created_at"`
}

// BeginInstall stores a CSRF state nonce and returns the Shopify
// authorization URL the merchant's browser must be sent to.
func (s *InstallService) BeginInstall(ctx context.Context, shop string) (string, error) {
	if shop == "" {
		return "", fmt.Errorf("shop is required")
	}

	stateBytes := make([]byte, 16)
	if _, err := rand.Read(stateBytes); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	state := hex.EncodeToString(stateBytes)

	data, err := json.Marshal(oauthState{Shop: shop, CreatedAt: time.Now().UTC()})
	if err != nil {
		return "", fmt.Errorf("failed to marshal oauth state: %w", err)
	}
	if err := s.kv.Set(ctx, oauthStateKeyPrefix+state, data, oauthStateTTL); err != nil {
		return "", fmt.Errorf("failed to store oauth state: %w", err)
	}

	authURL, err := s.client.GenerateAuthURL(shop, s.scopes, s.appURL+"/auth/callback", state)
	if err != nil {
		return "", fmt.Errorf("failed to build authorization URL: %w", err)
	}

	s.logger.Info().Str("shop", shop).Msg("Install started")
	return authURL, nil
}

// CompleteInstall verifies and consumes the state nonce, exchanges the
// authorization code for an offline token, and stores the session. A
// failed session write aborts the install: the caller must not redirect
// the merchant into an unauthenticated app.
func (s *InstallService) CompleteInstall(ctx context.Context, shop, code, state string) (*domain.Session, error) {
	if shop == "" || code == "" || state == "" {
		return nil, fmt.Errorf("shop, code and state are required")
	}

	data, err := s.kv.Get(ctx, oauthStateKeyPrefix+state)
	if err == ports.ErrNotFound {
		return nil, fmt.Errorf("unknown or expired oauth state")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load oauth state: %w", err)
	}

	var st oauthState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("corrupt oauth state: %w", err)
	}
	if st.Shop != shop {
		return nil, fmt.Errorf("oauth state does not match shop")
	}

	// Consume the nonce before the exchange so a replayed callback with
	// the same state fails cleanly.
	if err := s.kv.Del(ctx, oauthStateKeyPrefix+state); err != nil {
		s.logger.Warn().Err(err).Str("shop", shop).Msg("Failed to consume oauth state")
	}

	accessToken, err := s.client.ExchangeToken(ctx, shop, code, s.appURL+"/auth/callback")
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}

	session := domain.NewOfflineSession(shop, accessToken, s.scopes)
	if err := s.sessions.Store(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to store session for %s: %w", shop, err)
	}

	s.logger.Info().
		Str("shop", shop).
		Str("sessionId", session.ID).
		Msg("Install completed, offline session stored")
	return session, nil
}
