package helix

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the production Helix API base address.
	DefaultBaseURL = "https://api.twitch.tv/helix"

	// DefaultAuthURL is the production OAuth token endpoint.
	DefaultAuthURL = "https://id.twitch.tv/oauth2/token"

	defaultUserAgent   = "StreamActions (+https://github.com/gmt2001/StreamActions)"
	defaultQuotaWait   = 30 * time.Second
	defaultHTTPTimeout = 30 * time.Second
	authCallTimeout    = 10 * time.Second
)

// Options configures a Client. ClientID is required; everything else has a
// production default. QuotaWait bounds the rate-limit wait and HTTPTimeout
// bounds the transport; the two are deliberately independent knobs.
type Options struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	AuthURL      string
	UserAgent    string

	// HTTPClient overrides the shared transport. When nil a tuned client
	// with HTTPTimeout and a circuit breaker is used.
	HTTPClient *http.Client

	Logger *slog.Logger
	Clock  clockwork.Clock

	QuotaWait   time.Duration
	HTTPTimeout time.Duration

	// Pace, when non-zero, enables steady pacing on every session's
	// limiter in addition to the quota bucket.
	Pace      rate.Limit
	PaceBurst int

	// OnTokenRefresh is invoked with the updated session whenever the
	// pipeline refreshes a token, so a collaborator can persist the new
	// credential.
	OnTokenRefresh func(*Session)
}

// Client holds the API base address, application credentials, and the shared
// transport. It is safe for concurrent use; all mutable per-actor state
// lives on the Session.
//
// The zero Client is unusable: every call fails with ErrNotConfigured.
type Client struct {
	clientID     string
	clientSecret string
	baseURL      *url.URL
	authURL      string
	userAgent    string

	http     *http.Client
	authHTTP *http.Client

	logger *slog.Logger
	clock  clockwork.Clock

	quotaWait time.Duration
	pace      rate.Limit
	paceBurst int

	onTokenRefresh func(*Session)
	refreshGroup   singleflight.Group
}

// New creates a configured Client.
func New(opts Options) (*Client, error) {
	if opts.ClientID == "" {
		return nil, fmt.Errorf("helix: client ID is required")
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("helix: invalid base URL: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("helix: base URL must be absolute, got %q", baseURL)
	}

	authURL := opts.AuthURL
	if authURL == "" {
		authURL = DefaultAuthURL
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	quotaWait := opts.QuotaWait
	if quotaWait <= 0 {
		quotaWait = defaultQuotaWait
	}

	httpTimeout := opts.HTTPTimeout
	if httpTimeout <= 0 {
		httpTimeout = defaultHTTPTimeout
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: newBreakerTransport(tunedTransport(), logger),
			Timeout:   httpTimeout,
		}
	}

	return &Client{
		clientID:       opts.ClientID,
		clientSecret:   opts.ClientSecret,
		baseURL:        parsed,
		authURL:        authURL,
		userAgent:      userAgent,
		http:           httpClient,
		authHTTP:       &http.Client{Timeout: authCallTimeout},
		logger:         logger,
		clock:          clock,
		quotaWait:      quotaWait,
		pace:           opts.Pace,
		paceBurst:      opts.PaceBurst,
		onTokenRefresh: opts.OnTokenRefresh,
	}, nil
}

// tunedTransport returns the shared transport configuration.
func tunedTransport() *http.Transport {
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
}

// configured reports whether the client was built with New.
func (c *Client) configured() bool {
	return c != nil && c.baseURL != nil && c.http != nil
}
