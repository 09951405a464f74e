package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"shopmetrics/internal/domain"
	"shopmetrics/internal/ports"
)

const (
	// SessionTTL is the storage TTL applied on every write. A write
	// always resets the clock; token expiry is tracked separately on
	// the session itself.
	SessionTTL = 24 * time.Hour

	sessionKeyPrefix   = "session:"
	shopIndexKeyPrefix = "shop_sessions:"
)

// SessionRepository persists sessions in the durable KV store under
// session:<id> with a 24h TTL.
//
// The KV store has no secondary indexes, so FindByShop is unsupported
// unless the optional shop index is enabled: a shop_sessions:<shop> id
// set maintained with compensating writes alongside Store and Delete.
// The index and the session records are separate keys with no
// transaction spanning them; a dangling index entry is treated as an
// absent session, never as an error.
type SessionRepository struct {
	kv        ports.KV
	logger    zerolog.Logger
	ttl       time.Duration
	shopIndex bool
}

// SessionRepositoryOption configures a SessionRepository.
type SessionRepositoryOption func(*SessionRepository)

// WithShopIndex enables the secondary shop index so FindByShop returns
// the shop's stored sessions instead of an empty slice.
func WithShopIndex() SessionRepositoryOption {
	return func(r *SessionRepository) {
		r.shopIndex = true
	}
}

// WithSessionTTL overrides the storage TTL, used by tests.
func WithSessionTTL(ttl time.Duration) SessionRepositoryOption {
	return func(r *SessionRepository) {
		r.ttl = ttl
	}
}

// NewSessionRepository creates a KV-backed session repository.
func NewSessionRepository(kv ports.KV, logger zerolog.Logger, opts ...SessionRepositoryOption) *SessionRepository {
	r := &SessionRepository{
		kv:     kv,
		logger: logger,
		ttl:    SessionTTL,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func shopIndexKey(shop string) string {
	return shopIndexKeyPrefix + shop
}

// Store serializes the session and writes it with the standard TTL.
func (r *SessionRepository) Store(ctx context.Context, session *domain.Session) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("session id is required")
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session %s: %w", session.ID, err)
	}

	if err := r.kv.Set(ctx, sessionKey(session.ID), data, r.ttl); err != nil {
		return fmt.Errorf("failed to store session %s: %w", session.ID, err)
	}

	if r.shopIndex && session.Shop != "" {
		// Compensating write: the session record is already durable, so
		// an index failure leaves lookups degraded, not data lost.
		if err := r.indexAdd(ctx, session.Shop, session.ID); err != nil {
			r.logger.Warn().Err(err).
				Str("shop", session.Shop).
				Str("sessionId", session.ID).
				Msg("Failed to update shop session index")
		}
	}

	return nil
}

// Load returns the session, or (nil, nil) when the id is unknown or the
// record has expired.
func (r *SessionRepository) Load(ctx context.Context, id string) (*domain.Session, error) {
	data, err := r.kv.Get(ctx, sessionKey(id))
	if err == ports.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", id, err)
	}
	return &session, nil
}

// Delete removes a session. Deleting an absent id is a success.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	return r.DeleteMany(ctx, []string{id})
}

// DeleteMany removes sessions in one batched DEL. An empty input
// succeeds with zero effect.
func (r *SessionRepository) DeleteMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	// Resolve shops before deleting so the index can be compensated.
	byShop := map[string][]string{}
	if r.shopIndex {
		for _, id := range ids {
			session, err := r.Load(ctx, id)
			if err != nil || session == nil || session.Shop == "" {
				continue
			}
			byShop[session.Shop] = append(byShop[session.Shop], id)
		}
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = sessionKey(id)
	}
	if err := r.kv.Del(ctx, keys...); err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}

	for shop, shopIDs := range byShop {
		if err := r.indexRemove(ctx, shop, shopIDs...); err != nil {
			r.logger.Warn().Err(err).
				Str("shop", shop).
				Msg("Failed to prune shop session index")
		}
	}

	return nil
}

// FindByShop returns the sessions stored for a shop. Without the shop
// index a pure KV store cannot answer this query and the result is
// always empty; this is a documented limitation, not a failure.
func (r *SessionRepository) FindByShop(ctx context.Context, shop string) ([]*domain.Session, error) {
	if !r.shopIndex {
		return []*domain.Session{}, nil
	}

	ids, err := r.indexRead(ctx, shop)
	if err != nil {
		return nil, fmt.Errorf("failed to read shop session index for %s: %w", shop, err)
	}

	sessions := make([]*domain.Session, 0, len(ids))
	var dangling []string
	for _, id := range ids {
		session, err := r.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		if session == nil {
			// Expired or deleted while still indexed.
			dangling = append(dangling, id)
			continue
		}
		sessions = append(sessions, session)
	}

	if len(dangling) > 0 {
		if err := r.indexRemove(ctx, shop, dangling...); err != nil {
			r.logger.Warn().Err(err).
				Str("shop", shop).
				Int("dangling", len(dangling)).
				Msg("Failed to compact shop session index")
		}
	}

	return sessions, nil
}

// indexRead returns the session ids recorded for a shop.
func (r *SessionRepository) indexRead(ctx context.Context, shop string) ([]string, error) {
	data, err := r.kv.Get(ctx, shopIndexKey(shop))
	if err == ports.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("corrupt shop session index for %s: %w", shop, err)
	}
	return ids, nil
}

func (r *SessionRepository) indexWrite(ctx context.Context, shop string, ids []string) error {
	if len(ids) == 0 {
		return r.kv.Del(ctx, shopIndexKey(shop))
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	// The index outlives individual session TTLs; FindByShop treats ids
	// of expired sessions as absent and compacts them.
	return r.kv.Set(ctx, shopIndexKey(shop), data, 2*r.ttl)
}

func (r *SessionRepository) indexAdd(ctx context.Context, shop, id string) error {
	ids, err := r.indexRead(ctx, shop)
	if err != nil {
		return err
	}
	for _, existing := range ids {
		if existing == id {
			return r.indexWrite(ctx, shop, ids) // refresh index TTL
		}
	}
	return r.indexWrite(ctx, shop, append(ids, id))
}

func (r *SessionRepository) indexRemove(ctx context.Context, shop string, remove ...string) error {
	ids, err := r.indexRead(ctx, shop)
	if err != nil {
		return err
	}
	removeSet := make(map[string]struct{}, len(remove))
	for _, id := range remove {
		removeSet[id] = struct{}{}
	}
	kept := ids[:0]
	for _, id := range ids {
		if _, drop := removeSet[id]; !drop {
			kept = append(kept, id)
		}
	}
	return r.indexWrite(ctx, shop, kept)
}
