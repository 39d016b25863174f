package helix

import (
	"sync/atomic"
)

// Session identifies one authenticated actor: its current token, granted
// scopes, and rate-limit state. Sessions are owned by their caller (one per
// channel or authenticated actor); the pipeline only borrows them per call.
//
// The token is replaced wholesale on refresh via an atomic pointer, so
// in-flight requests never observe a partial update.
type Session struct {
	actorID string
	scopes  map[string]struct{}
	token   atomic.Pointer[Token]
	limiter *Limiter
}

// NewSession creates a session for the given actor. If scopes is nil the
// token's own scope list is used; bootstrap flows pass an explicit set since
// the sentinel token carries none.
func (c *Client) NewSession(actorID string, tok Token, scopes []string) *Session {
	if scopes == nil {
		scopes = tok.Scopes
	}
	set := make(map[string]struct{}, len(scopes))
	for _, sc := range scopes {
		set[sc] = struct{}{}
	}

	s := &Session{
		actorID: actorID,
		scopes:  set,
		limiter: NewLimiter(c.clock, DefaultBucket),
	}
	if c.pace > 0 {
		s.limiter.SetPace(c.pace, c.paceBurst)
	}
	s.token.Store(&tok)
	return s
}

// ActorID returns the opaque identity this session authenticates as.
func (s *Session) ActorID() string {
	return s.actorID
}

// Token returns the current token.
func (s *Session) Token() Token {
	return *s.token.Load()
}

// SetToken replaces the session's token wholesale.
func (s *Session) SetToken(tok Token) {
	s.token.Store(&tok)
}

// HasScope reports whether the session was granted the named scope.
func (s *Session) HasScope(scope string) bool {
	_, ok := s.scopes[scope]
	return ok
}

// Scopes returns the granted scope set.
func (s *Session) Scopes() []string {
	out := make([]string, 0, len(s.scopes))
	for sc := range s.scopes {
		out = append(out, sc)
	}
	return out
}

// Limiter returns the session's rate limiter.
func (s *Session) Limiter() *Limiter {
	return s.limiter
}
