// Package redistoken persists Helix credentials in Redis, keyed by actor.
// It is the canonical consumer of the pipeline's token-refreshed
// notification: wire Store.RefreshCallback into helix.Options.OnTokenRefresh
// and every refreshed credential is written through automatically.
package redistoken

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/gmt2001/StreamActions/helix"
	"github.com/gmt2001/StreamActions/internal/backoff"
	"github.com/gmt2001/StreamActions/internal/crypto"
)

const (
	keyPrefix   = "helix:token:"
	saveTimeout = 5 * time.Second
)

// ErrNotFound is returned by Load when no token is stored for the actor.
var ErrNotFound = errors.New("redistoken: no token stored for actor")

// Store persists tokens per actor.
type Store struct {
	rdb    *goredis.Client
	clock  clockwork.Clock
	logger *slog.Logger
	cipher crypto.Cipher
}

// Option customizes a Store.
type Option func(*Store)

// WithCipher encrypts stored records with the given cipher. The default is
// plaintext.
func WithCipher(c crypto.Cipher) Option {
	return func(s *Store) { s.cipher = c }
}

// NewStore creates a token store on the given Redis client.
func NewStore(rdb *goredis.Client, clock clockwork.Clock, logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{rdb: rdb, clock: clock, logger: logger, cipher: crypto.Plaintext{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// record is the stored wire shape.
type record struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	Scopes       []string  `json:"scopes,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Save writes the actor's token. Tokens carry no TTL: the refresh token
// outlives the access token's expiry and is the part worth keeping.
func (s *Store) Save(ctx context.Context, actorID string, tok helix.Token) error {
	data, err := json.Marshal(record{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.ExpiresAt,
		Scopes:       tok.Scopes,
		UpdatedAt:    s.clock.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	sealed, err := s.cipher.Seal(data)
	if err != nil {
		return fmt.Errorf("failed to encrypt token: %w", err)
	}

	if err := s.rdb.Set(ctx, keyPrefix+actorID, sealed, 0).Err(); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

// Load reads the actor's token. Returns ErrNotFound when none is stored.
func (s *Store) Load(ctx context.Context, actorID string) (helix.Token, error) {
	data, err := s.rdb.Get(ctx, keyPrefix+actorID).Bytes()
	if errors.Is(err, goredis.Nil) {
		return helix.Token{}, ErrNotFound
	}
	if err != nil {
		return helix.Token{}, fmt.Errorf("failed to load token: %w", err)
	}

	data, err = s.cipher.Open(data)
	if err != nil {
		return helix.Token{}, fmt.Errorf("failed to decrypt token: %w", err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return helix.Token{}, fmt.Errorf("failed to unmarshal token: %w", err)
	}

	return helix.Token{
		AccessToken:  rec.AccessToken,
		RefreshToken: rec.RefreshToken,
		ExpiresAt:    rec.ExpiresAt,
		Scopes:       rec.Scopes,
	}, nil
}

// Delete removes the actor's token. Deleting an absent token is not an error.
func (s *Store) Delete(ctx context.Context, actorID string) error {
	if err := s.rdb.Del(ctx, keyPrefix+actorID).Err(); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

// RefreshCallback adapts the store to helix.Options.OnTokenRefresh. The
// pipeline invokes the callback synchronously, so the write is bounded by
// its own timeout and failures are logged rather than propagated into the
// request path. Transient write failures get a couple of quick retries; a
// lost refreshed token forces a re-auth later.
func (s *Store) RefreshCallback() func(*helix.Session) {
	policy := backoff.Policy{
		Attempts: 3,
		Initial:  100 * time.Millisecond,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			s.logger.Warn("retrying token persist", "attempt", attempt, "error", err)
		},
	}

	return func(sess *helix.Session) {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()

		err := backoff.DoVoid(ctx, policy, backoff.Always, func() error {
			return s.Save(ctx, sess.ActorID(), sess.Token())
		})
		if err != nil {
			s.logger.Error("failed to persist refreshed token",
				"actor", sess.ActorID(),
				"error", err,
			)
		}
	}
}
