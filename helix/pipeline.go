package helix

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gmt2001/StreamActions/internal/metrics"
	"github.com/gmt2001/StreamActions/internal/requestid"
)

// Request describes one logical API call. It is ephemeral: it exists only
// for the duration of one Do call, including its at-most-one retry.
type Request struct {
	Method string
	// Path is resolved against the client's base URL; an absolute URL is
	// used as-is.
	Path   string
	Params url.Values
	Body   []byte
}

// Execute is the convenience form of Do for calls without query parameters.
func (c *Client) Execute(ctx context.Context, method, path string, s *Session, body []byte) (*Response, error) {
	return c.Do(ctx, Request{Method: method, Path: path, Body: body}, s)
}

// Do runs one logical call through the pipeline: rate-limit wait, header
// construction, dispatch, at-most-one refresh-and-retry on 401, response
// normalization, and rate-limiter update from response headers.
//
// Usage faults (unconfigured client, unusable credential) are returned as
// errors before any I/O, as is ErrQuotaTimeout. Protocol outcomes, including
// a second 401 after retry and transport failures, travel inside the
// returned Response.
func (c *Client) Do(ctx context.Context, req Request, s *Session) (*Response, error) {
	if !c.configured() {
		return nil, ErrNotConfigured
	}
	if s == nil {
		return nil, ErrNoCredential
	}

	tok := s.Token()
	if !tok.IsZero() && tok.AccessToken == "" {
		return nil, ErrNoCredential
	}

	// Bounded retry loop: at most one refresh-and-retry per logical call.
	for attempt := 0; attempt <= 1; attempt++ {
		waitStart := time.Now()
		if err := s.limiter.Acquire(ctx, c.quotaWait); err != nil {
			return nil, err
		}
		metrics.RateLimitWaitSeconds.Observe(time.Since(waitStart).Seconds())

		httpReq, err := c.buildRequest(ctx, req, tok)
		if err != nil {
			return nil, err
		}

		resp, err := c.http.Do(httpReq)
		if err != nil {
			metrics.TransportFailuresTotal.Inc()
			c.logger.WarnContext(ctx, "helix transport failure",
				"method", req.Method,
				"path", req.Path,
				"error", err,
			)
			return failureResponse(err), nil
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		s.limiter.Update(resp.Header)
		metrics.RequestsTotal.WithLabelValues(req.Method, strconv.Itoa(resp.StatusCode)).Inc()
		if err != nil {
			metrics.TransportFailuresTotal.Inc()
			return failureResponse(err), nil
		}

		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 && !tok.IsZero() && tok.RefreshToken != "" {
			newTok, rerr := c.RefreshSession(ctx, s)
			if rerr != nil {
				c.logger.WarnContext(ctx, "token refresh failed, returning original 401",
					"actor", s.actorID,
					"error", rerr,
				)
				return &Response{
					Status: resp.StatusCode,
					Header: resp.Header,
					Body:   normalizeBody(resp.StatusCode, resp.Header.Get("Content-Type"), body),
				}, nil
			}
			tok = newTok
			continue
		}

		return &Response{
			Status: resp.StatusCode,
			Header: resp.Header,
			Body:   normalizeBody(resp.StatusCode, resp.Header.Get("Content-Type"), body),
		}, nil
	}

	panic("unreachable: retry loop always returns")
}

// buildRequest constructs the transport request: resolved URL with escaped
// query, identification headers, and the bearer token unless the session
// holds the bootstrap sentinel.
func (c *Client) buildRequest(ctx context.Context, req Request, tok Token) (*http.Request, error) {
	target, err := c.resolveURL(req.Path, req.Params)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("helix: building request: %w", err)
	}

	httpReq.Header.Set("Client-Id", c.clientID)
	httpReq.Header.Set("User-Agent", c.userAgent)

	// Callers that already carry a request ID keep it; everyone else gets a
	// fresh one so the call is traceable in logs on both sides.
	id, ok := requestid.FromContext(ctx)
	if !ok {
		id = requestid.New()
	}
	httpReq.Header.Set("X-Request-Id", id)
	if len(req.Body) > 0 {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if !tok.IsZero() {
		httpReq.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	}

	return httpReq, nil
}

func (c *Client) resolveURL(path string, params url.Values) (string, error) {
	parsed, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("helix: invalid request path %q: %w", path, err)
	}

	var target *url.URL
	if parsed.IsAbs() {
		target = parsed
	} else {
		joined := *c.baseURL
		joined.Path = strings.TrimSuffix(joined.Path, "/") + "/" + strings.TrimPrefix(parsed.Path, "/")
		joined.RawQuery = parsed.RawQuery
		joined.Fragment = parsed.Fragment
		target = &joined
	}

	if len(params) > 0 {
		target.RawQuery = params.Encode()
	}

	return target.String(), nil
}

// RefreshSession exchanges the session's refresh token for a new Token,
// replaces the session's token on success, and emits the token-refreshed
// notification. Concurrent refreshes for the same actor are collapsed into a
// single exchange.
func (c *Client) RefreshSession(ctx context.Context, s *Session) (Token, error) {
	if !c.configured() {
		return Token{}, ErrNotConfigured
	}
	if s == nil {
		return Token{}, ErrNoCredential
	}

	cur := s.Token()
	if cur.IsZero() {
		return Token{}, ErrNoCredential
	}
	if cur.RefreshToken == "" {
		return Token{}, ErrNoRefreshToken
	}

	v, err, _ := c.refreshGroup.Do(s.actorID, func() (any, error) {
		// Another flight may have refreshed while we waited for the lock.
		latest := s.Token()
		if latest.AccessToken != cur.AccessToken {
			return latest, nil
		}

		newTok, err := c.refreshToken(ctx, latest.RefreshToken)
		if err != nil {
			metrics.TokenRefreshesTotal.WithLabelValues("failure").Inc()
			return nil, err
		}

		s.SetToken(newTok)
		metrics.TokenRefreshesTotal.WithLabelValues("success").Inc()
		c.logger.InfoContext(ctx, "token refreshed", "actor", s.actorID)

		if c.onTokenRefresh != nil {
			c.onTokenRefresh(s)
		}
		return newTok, nil
	})
	if err != nil {
		return Token{}, err
	}
	return v.(Token), nil
}
