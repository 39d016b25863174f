// Package helixtest provides an in-process stand-in for the Helix API and
// its OAuth token endpoint, for exercising the request pipeline end to end
// without the real service.
package helixtest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// Server is a fake Helix API plus OAuth token endpoint. It tracks one valid
// user access token, rotates it on refresh grants, and reports rate-limit
// headers on every API response.
type Server struct {
	srv *httptest.Server

	mu          sync.Mutex
	validAccess string
	refreshTok  string
	generation  int
	refreshes   int
	failRefresh bool

	remaining int
	limit     int
	resetAt   time.Time

	users []fakeUser
}

type fakeUser struct {
	ID          string `json:"id"`
	Login       string `json:"login"`
	DisplayName string `json:"display_name"`
}

// New starts a fake server with one valid token pair ("access-0" /
// "refresh-0") and a comfortable quota.
func New() *Server {
	s := &Server{
		validAccess: "access-0",
		refreshTok:  "refresh-0",
		remaining:   799,
		limit:       800,
		resetAt:     time.Now().Add(time.Minute),
	}

	e := echo.New()
	e.HideBanner = true
	e.POST("/oauth2/token", s.handleToken)
	e.GET("/helix/users", s.handleUsers)

	s.srv = httptest.NewServer(e)
	return s
}

// BaseURL is the fake Helix API base address.
func (s *Server) BaseURL() string { return s.srv.URL + "/helix" }

// AuthURL is the fake OAuth token endpoint.
func (s *Server) AuthURL() string { return s.srv.URL + "/oauth2/token" }

// Close shuts the server down.
func (s *Server) Close() { s.srv.Close() }

// AccessToken returns the currently valid access token.
func (s *Server) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validAccess
}

// RefreshToken returns the currently valid refresh token.
func (s *Server) RefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshTok
}

// RefreshCount returns how many refresh grants the server has served.
func (s *Server) RefreshCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshes
}

// ExpireAccessToken invalidates the current access token without telling the
// client, so its next request earns a 401.
func (s *Server) ExpireAccessToken() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.validAccess = fmt.Sprintf("access-%d", s.generation)
}

// FailRefresh makes subsequent refresh grants fail with 400 invalid_grant.
func (s *Server) FailRefresh(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failRefresh = fail
}

// SetQuota overrides the rate-limit headers reported on API responses.
func (s *Server) SetQuota(remaining, limit int, resetAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remaining = remaining
	s.limit = limit
	s.resetAt = resetAt
}

// AddUser registers a user record served by the users endpoint.
func (s *Server) AddUser(id, login, displayName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = append(s.users, fakeUser{ID: id, Login: login, DisplayName: displayName})
}

func (s *Server) handleToken(c echo.Context) error {
	grantType := c.FormValue("grant_type")

	s.mu.Lock()
	defer s.mu.Unlock()

	switch grantType {
	case "refresh_token":
		s.refreshes++
		if s.failRefresh || c.FormValue("refresh_token") != s.refreshTok {
			return c.JSON(http.StatusBadRequest, map[string]any{
				"status":  400,
				"error":   "invalid_grant",
				"message": "Invalid refresh token",
			})
		}
		s.generation++
		s.validAccess = fmt.Sprintf("access-%d", s.generation)
		s.refreshTok = fmt.Sprintf("refresh-%d", s.generation)
		return c.JSON(http.StatusOK, map[string]any{
			"access_token":  s.validAccess,
			"refresh_token": s.refreshTok,
			"expires_in":    14400,
			"scope":         []string{},
			"token_type":    "bearer",
		})

	case "client_credentials":
		s.generation++
		s.validAccess = fmt.Sprintf("access-%d", s.generation)
		return c.JSON(http.StatusOK, map[string]any{
			"access_token": s.validAccess,
			"expires_in":   5400,
			"token_type":   "bearer",
		})

	default:
		return c.JSON(http.StatusBadRequest, map[string]any{
			"status":  400,
			"error":   "unsupported_grant_type",
			"message": "unsupported grant type",
		})
	}
}

func (s *Server) handleUsers(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.writeRateHeaders(c)

	if c.Request().Header.Get("Client-Id") == "" {
		return c.JSON(http.StatusBadRequest, map[string]any{
			"status": 400, "error": "Bad Request", "message": "Client-Id header required",
		})
	}
	if c.Request().Header.Get("Authorization") != "Bearer "+s.validAccess {
		return c.JSON(http.StatusUnauthorized, map[string]any{
			"status": 401, "error": "Unauthorized", "message": "Invalid OAuth token",
		})
	}

	if s.remaining > 0 {
		s.remaining--
	}

	login := c.QueryParam("login")
	id := c.QueryParam("id")
	matched := make([]fakeUser, 0, len(s.users))
	for _, u := range s.users {
		if (login == "" || u.Login == login) && (id == "" || u.ID == id) {
			matched = append(matched, u)
		}
	}
	return c.JSON(http.StatusOK, map[string]any{"data": matched})
}

func (s *Server) writeRateHeaders(c echo.Context) {
	h := c.Response().Header()
	h.Set("Ratelimit-Limit", strconv.Itoa(s.limit))
	h.Set("Ratelimit-Remaining", strconv.Itoa(s.remaining))
	h.Set("Ratelimit-Reset", strconv.FormatInt(s.resetAt.Unix(), 10))
}
