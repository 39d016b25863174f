package helix

import (
	"errors"
	"fmt"
)

// Usage faults. These are returned immediately, before any network I/O,
// because they indicate a programming error rather than a runtime condition.
var (
	// ErrNotConfigured is returned when a Client is used before it was
	// built with New.
	ErrNotConfigured = errors.New("helix: client is not configured")

	// ErrNoCredential is returned when a Session's token is non-sentinel
	// but carries no access token, or when no Session was supplied.
	ErrNoCredential = errors.New("helix: session has no usable credential")

	// ErrNoRefreshToken is returned when a refresh is requested for a
	// token that has no refresh token.
	ErrNoRefreshToken = errors.New("helix: token has no refresh token")
)

// ErrQuotaTimeout is returned when the rate-limit quota wait exceeded the
// configured bound. The request was never dispatched; the caller decides
// whether to retry.
var ErrQuotaTimeout = errors.New("helix: timed out waiting for request quota")

// ScopeError reports an operation attempted without a required scope grant.
// It is raised before any network call.
type ScopeError struct {
	Scope string
}

func (e *ScopeError) Error() string {
	return fmt.Sprintf("helix: missing required scope %q", e.Scope)
}

// RefreshError classifies a failed token refresh. Revoked means the
// authorization server rejected the refresh token itself (400/401), so
// retrying with the same token is pointless.
type RefreshError struct {
	Revoked bool
	Err     error
}

func (e *RefreshError) Error() string {
	if e.Revoked {
		return fmt.Sprintf("token revoked: %v", e.Err)
	}
	return fmt.Sprintf("token refresh failed: %v", e.Err)
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}
