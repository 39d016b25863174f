package helix

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Token is an immutable credential bundle. The zero Token is the "not yet
// issued" sentinel used by bootstrap flows that must send no Authorization
// header; a non-zero Token with an empty access token is invalid and is
// rejected before it ever reaches the wire.
//
// Tokens are replaced wholesale on refresh, never mutated in place, so
// concurrent readers never observe a half-updated credential.
type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Scopes       []string
}

// IsZero reports whether t is the bootstrap sentinel.
func (t Token) IsZero() bool {
	return t.AccessToken == "" && t.RefreshToken == "" && t.ExpiresAt.IsZero() && len(t.Scopes) == 0
}

// Expired reports whether the token expires within the given margin of now.
func (t Token) Expired(now time.Time, margin time.Duration) bool {
	return !now.Add(margin).Before(t.ExpiresAt)
}

// tokenGrantResponse is the wire shape of the OAuth token endpoint.
type tokenGrantResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresIn    int      `json:"expires_in"`
	Scope        []string `json:"scope"`
}

// refreshToken exchanges a refresh token for a new Token at the OAuth token
// endpoint. It never recurses into the request pipeline, so a rejected
// refresh cannot trigger another refresh.
func (c *Client) refreshToken(ctx context.Context, refreshToken string) (Token, error) {
	data := url.Values{}
	data.Set("client_id", c.clientID)
	data.Set("client_secret", c.clientSecret)
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)

	return c.tokenGrant(ctx, data)
}

// AppAccessToken obtains an app access token via the client credentials
// grant. The resulting Token has no refresh token; when it expires a new one
// is requested the same way.
func (c *Client) AppAccessToken(ctx context.Context) (Token, error) {
	data := url.Values{}
	data.Set("client_id", c.clientID)
	data.Set("client_secret", c.clientSecret)
	data.Set("grant_type", "client_credentials")

	return c.tokenGrant(ctx, data)
}

func (c *Client) tokenGrant(ctx context.Context, data url.Values) (Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, strings.NewReader(data.Encode()))
	if err != nil {
		return Token{}, &RefreshError{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.authHTTP.Do(req)
	if err != nil {
		return Token{}, &RefreshError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Token{}, &RefreshError{Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		// 400/401 from the token endpoint means the grant itself was
		// rejected, not a transient failure.
		revoked := resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized
		return Token{}, &RefreshError{
			Revoked: revoked,
			Err:     fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, string(body)),
		}
	}

	var result tokenGrantResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return Token{}, &RefreshError{Err: err}
	}
	if result.AccessToken == "" {
		return Token{}, &RefreshError{Err: fmt.Errorf("token endpoint returned no access token")}
	}

	return Token{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		ExpiresAt:    c.clock.Now().Add(time.Duration(result.ExpiresIn) * time.Second),
		Scopes:       result.Scope,
	}, nil
}
