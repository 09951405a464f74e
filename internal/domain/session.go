package domain

import (
	"fmt"
	"time"
)

// Session represents one authorized link between this app and a merchant
// store. The access token is sensitive and must never be logged.
type Session struct {
	ID          string     `json:"id"`
	Shop        string     `json:"shop"`
	AccessToken string     `json:"access_token"`
	Scopes      []string   `json:"scopes,omitempty"`
	IsOnline    bool       `json:"is_online"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// OfflineSessionID derives the deterministic session id for a shop's
// offline (background, non-user-bound) token. At most one offline session
// per shop is meaningful; a reinstall overwrites the same record.
func OfflineSessionID(shop string) string {
	return fmt.Sprintf("offline_%s", shop)
}

// NewOfflineSession builds an offline session for a shop after a
// completed token exchange.
func NewOfflineSession(shop, accessToken string, scopes []string) *Session {
	return &Session{
		ID:          OfflineSessionID(shop),
		Shop:        shop,
		AccessToken: accessToken,
		Scopes:      scopes,
		IsOnline:    false,
		CreatedAt:   time.Now().UTC(),
	}
}
