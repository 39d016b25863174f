package helix

// OAuth scope identifiers for operations this client wraps.
const (
	ScopeAnalyticsReadExtensions = "analytics:read:extensions"
	ScopeAnalyticsReadGames      = "analytics:read:games"
	ScopeBitsRead                = "bits:read"
	ScopeChannelBot              = "channel:bot"
	ScopeChannelManageBroadcast  = "channel:manage:broadcast"
	ScopeModeratorReadChatters   = "moderator:read:chatters"
	ScopeUserBot                 = "user:bot"
	ScopeUserReadChat            = "user:read:chat"
	ScopeUserReadEmail           = "user:read:email"
)

// requireScopes returns a ScopeError for the first scope the session was not
// granted. Checked before any network call, saving the round trip.
func requireScopes(s *Session, scopes ...string) error {
	for _, scope := range scopes {
		if !s.HasScope(scope) {
			return &ScopeError{Scope: scope}
		}
	}
	return nil
}
