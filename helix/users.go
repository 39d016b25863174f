package helix

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// User is a Helix user record.
type User struct {
	ID              string    `json:"id"`
	Login           string    `json:"login"`
	DisplayName     string    `json:"display_name"`
	Type            string    `json:"type"`
	BroadcasterType string    `json:"broadcaster_type"`
	Description     string    `json:"description"`
	ProfileImageURL string    `json:"profile_image_url"`
	OfflineImageURL string    `json:"offline_image_url"`
	CreatedAt       time.Time `json:"created_at"`
}

// GetUsers fetches user records by login name and/or ID. With no filters the
// API returns the user the session's token belongs to.
//
// A non-OK status is not an error: the Response carries the envelope and the
// caller branches on Status.
func (c *Client) GetUsers(ctx context.Context, s *Session, logins, ids []string) ([]User, *Response, error) {
	params := url.Values{}
	for _, login := range logins {
		params.Add("login", login)
	}
	for _, id := range ids {
		params.Add("id", id)
	}

	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: "users", Params: params}, s)
	if err != nil {
		return nil, nil, err
	}
	if resp.Status != http.StatusOK {
		return nil, resp, nil
	}

	var out struct {
		Data []User `json:"data"`
	}
	if err := resp.Decode(&out); err != nil {
		return nil, resp, err
	}
	return out.Data, resp, nil
}
