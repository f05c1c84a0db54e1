// Package credentials models the persisted Cirra AI OAuth credential record
// and the sources it can be loaded from.
//
// Two sources exist: an injected environment variable (read-only, used by
// headless deployments) and the token store file written by the authorizer.
// A Chain resolves the first source that holds a record, and a Manager keeps
// the record fresh, refreshing it when the access token is about to expire
// and writing it back to the source it came from.
package credentials

import (
	"time"
)

// RefreshMargin is how long before expiry a token is already treated as expired.
const RefreshMargin = 60 * time.Second

// Credential is the record shared between the authorizer and the tool invoker.
// Field names and JSON shape match the on-disk token store.
type Credential struct {
	Server       string `json:"server"`
	URL          string `json:"url"`
	ClientID     string `json:"client_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	// ExpiresAt is an epoch-millisecond timestamp, nil when the server gave no lifetime.
	ExpiresAt *int64 `json:"expires_at"`
	Scope     string `json:"scope"`
}

// ExpiresAtFrom computes the expires_at value for a token issued at issuedAt
// with the given lifetime in seconds. A non-positive lifetime means unknown.
func ExpiresAtFrom(issuedAt time.Time, expiresIn int64) *int64 {
	if expiresIn <= 0 {
		return nil
	}
	ms := issuedAt.UnixMilli() + expiresIn*1000
	return &ms
}

// Expiry returns the expiry as a time and whether one is known.
func (c *Credential) Expiry() (time.Time, bool) {
	if c == nil || c.ExpiresAt == nil {
		return time.Time{}, false
	}
	return time.UnixMilli(*c.ExpiresAt), true
}

// NeedsRefresh reports whether the access token is expired or within
// RefreshMargin of expiring at now. Records without an expiry never need one.
func (c *Credential) NeedsRefresh(now time.Time) bool {
	expiry, ok := c.Expiry()
	if !ok {
		return false
	}
	return !now.Add(RefreshMargin).Before(expiry)
}

// Clone returns a deep copy so callers can mutate without aliasing ExpiresAt.
func (c *Credential) Clone() *Credential {
	if c == nil {
		return nil
	}
	cp := *c
	if c.ExpiresAt != nil {
		v := *c.ExpiresAt
		cp.ExpiresAt = &v
	}
	return &cp
}
