package helix

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetUsers_DecodesRecords(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{
			"id":"44322889",
			"login":"dallas",
			"display_name":"dallas",
			"type":"staff",
			"broadcaster_type":"affiliate",
			"description":"Just a gamer",
			"profile_image_url":"https://example.com/profile.png",
			"offline_image_url":"https://example.com/offline.png",
			"created_at":"2013-06-03T19:12:02Z"
		}]}`))
	}))
	defer srv.Close()

	c, err := New(Options{ClientID: "test_client", BaseURL: srv.URL})
	require.NoError(t, err)
	sess := c.NewSession("44322889", Token{AccessToken: "a", ExpiresAt: time.Now().Add(time.Hour)}, []string{})

	users, resp, err := c.GetUsers(context.Background(), sess, []string{"dallas"}, []string{"44322889"})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "id=44322889&login=dallas", gotQuery)
	require.Len(t, users, 1)
	assert.Equal(t, "44322889", users[0].ID)
	assert.Equal(t, "dallas", users[0].Login)
	assert.Equal(t, "staff", users[0].Type)
	assert.Equal(t, "affiliate", users[0].BroadcasterType)
	assert.Equal(t, time.Date(2013, 6, 3, 19, 12, 2, 0, time.UTC), users[0].CreatedAt)
}

func TestGetUsers_NonOKStatusReturnsEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"status":429,"error":"Too Many Requests","message":"rate limit exceeded"}`))
	}))
	defer srv.Close()

	c, err := New(Options{ClientID: "test_client", BaseURL: srv.URL})
	require.NoError(t, err)
	sess := c.NewSession("123", Token{AccessToken: "a", ExpiresAt: time.Now().Add(time.Hour)}, []string{})

	users, resp, err := c.GetUsers(context.Background(), sess, nil, nil)

	require.NoError(t, err)
	assert.Nil(t, users)
	assert.Equal(t, http.StatusTooManyRequests, resp.Status)
	assert.Equal(t, "rate limit exceeded", resp.ErrorMessage())
}
