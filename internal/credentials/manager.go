package credentials

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Refresher exchanges a refresh token for a new credential record.
type Refresher interface {
	Refresh(ctx context.Context, cred *Credential) (*Credential, error)
}

// Manager hands out access tokens, refreshing the record first when the
// refresh guard says so. Refreshed records are written back to their source.
type Manager struct {
	mu        sync.Mutex
	cred      *Credential
	source    Source
	refresher Refresher
	now       func() time.Time
}

// NewManager creates a manager for a record loaded from source.
func NewManager(cred *Credential, source Source, refresher Refresher) *Manager {
	return &Manager{
		cred:      cred.Clone(),
		source:    source,
		refresher: refresher,
		now:       time.Now,
	}
}

// AccessToken evaluates the refresh guard and returns the bearer token,
// refreshing first if the guard requires it. Callers consult it once per
// operation and reuse the token for every request of that operation.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cred.NeedsRefresh(m.now()) {
		if err := m.refreshLocked(ctx); err != nil {
			return "", err
		}
	}
	return m.cred.AccessToken, nil
}

// refreshLocked runs the refresh grant and persists the result.
// REQUIRES: m.mu held.
func (m *Manager) refreshLocked(ctx context.Context) error {
	if m.refresher == nil {
		return fmt.Errorf("access token expired and no refresher is configured")
	}

	refreshed, err := m.refresher.Refresh(ctx, m.cred.Clone())
	if err != nil {
		slog.Warn("SECURITY_AUDIT: OAuth token refresh failed",
			"event", "token_refresh_failed",
			"server", m.cred.Server,
			"error", err.Error(),
		)
		return err
	}
	m.cred = refreshed

	slog.Info("SECURITY_AUDIT: OAuth token refreshed",
		"event", "token_refreshed",
		"server", refreshed.Server,
		"source", m.source.Name(),
	)

	if !m.source.Writable() {
		return nil
	}
	if err := m.source.Save(refreshed); err != nil {
		return fmt.Errorf("failed to persist refreshed credentials: %w", err)
	}
	return nil
}
