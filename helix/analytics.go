package helix

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DateRange bounds an analytics report.
type DateRange struct {
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
}

// GameAnalyticsReport is a downloadable analytics report for one game.
type GameAnalyticsReport struct {
	GameID    string    `json:"game_id"`
	URL       string    `json:"URL"`
	Type      string    `json:"type"`
	DateRange DateRange `json:"date_range"`
}

// GameAnalyticsParams filters a game analytics request. All fields are
// optional.
type GameAnalyticsParams struct {
	GameID    string
	Type      string
	StartedAt time.Time
	EndedAt   time.Time
	First     int
	After     string
}

// GetGameAnalytics fetches analytics report URLs for games owned by the
// session's actor. Requires the analytics:read:games scope, checked before
// any network call.
func (c *Client) GetGameAnalytics(ctx context.Context, s *Session, p GameAnalyticsParams) ([]GameAnalyticsReport, *Response, error) {
	if s == nil {
		return nil, nil, ErrNoCredential
	}
	if err := requireScopes(s, ScopeAnalyticsReadGames); err != nil {
		return nil, nil, err
	}

	params := url.Values{}
	if p.GameID != "" {
		params.Set("game_id", p.GameID)
	}
	if p.Type != "" {
		params.Set("type", p.Type)
	}
	if !p.StartedAt.IsZero() {
		params.Set("started_at", p.StartedAt.Format(time.RFC3339))
	}
	if !p.EndedAt.IsZero() {
		params.Set("ended_at", p.EndedAt.Format(time.RFC3339))
	}
	if p.First > 0 {
		params.Set("first", strconv.Itoa(p.First))
	}
	if p.After != "" {
		params.Set("after", p.After)
	}

	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: "analytics/games", Params: params}, s)
	if err != nil {
		return nil, nil, err
	}
	if resp.Status != http.StatusOK {
		return nil, resp, nil
	}

	var out struct {
		Data []GameAnalyticsReport `json:"data"`
	}
	if err := resp.Decode(&out); err != nil {
		return nil, resp, err
	}
	return out.Data, resp, nil
}
