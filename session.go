package blogengine

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
)

const (
	sessionName     = "blog_session"
	sessionTokenKey = "token"
	userContextKey  = "blogengine.user"
)

// SessionManager maps opaque session tokens to users. The token travels in a
// signed cookie; the token-to-user mapping lives in the sessions table so
// logging out invalidates it server-side.
type SessionManager struct {
	store *Store
	ttl   time.Duration
	now   func() time.Time
}

// NewSessionManager creates a SessionManager whose logins last ttl.
func NewSessionManager(store *Store, ttl time.Duration) *SessionManager {
	return &SessionManager{store: store, ttl: ttl, now: time.Now}
}

// getSession returns the cookie session. A cookie that fails to decode (for
// example after a secret rotation) yields a fresh session rather than an error.
func getSession(c echo.Context) (*sessions.Session, error) {
	sess, err := session.Get(sessionName, c)
	if sess != nil {
		return sess, nil
	}
	return nil, err
}

func newSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Login establishes an authenticated session for userID. Any token the client
// already holds is revoked first.
func (m *SessionManager) Login(c echo.Context, userID int64) error {
	ctx := c.Request().Context()
	sess, err := getSession(c)
	if err != nil {
		return err
	}
	if old, ok := sess.Values[sessionTokenKey].(string); ok && old != "" {
		if err := m.store.DeleteSession(ctx, old); err != nil {
			return err
		}
	}
	token, err := newSessionToken()
	if err != nil {
		return err
	}
	now := m.now()
	if _, err := m.store.DeleteExpiredSessions(ctx, now); err != nil {
		c.Logger().Warnf("purge expired sessions: %v", err)
	}
	if err := m.store.CreateSession(ctx, token, userID, now.Add(m.ttl)); err != nil {
		return err
	}
	sess.Values[sessionTokenKey] = token
	sess.Options.MaxAge = int(m.ttl / time.Second)
	return sess.Save(c.Request(), c.Response())
}

// Logout revokes the client's token and expires the cookie.
func (m *SessionManager) Logout(c echo.Context) error {
	sess, err := getSession(c)
	if err != nil {
		return err
	}
	if token, ok := sess.Values[sessionTokenKey].(string); ok && token != "" {
		if err := m.store.DeleteSession(c.Request().Context(), token); err != nil {
			return err
		}
	}
	delete(sess.Values, sessionTokenKey)
	sess.Options.MaxAge = -1
	return sess.Save(c.Request(), c.Response())
}

// Resolve returns the user owning token. Unknown, expired or orphaned tokens
// resolve to nil without error.
func (m *SessionManager) Resolve(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, nil
	}
	u, err := m.store.SessionUser(ctx, token, m.now())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// Current resolves the identity carried by the request's session cookie.
func (m *SessionManager) Current(c echo.Context) (*User, error) {
	sess, err := getSession(c)
	if err != nil {
		return nil, nil
	}
	token, _ := sess.Values[sessionTokenKey].(string)
	return m.Resolve(c.Request().Context(), token)
}

// loadIdentity resolves the current user once per request and stores it in
// the Echo context for handlers and the admin guard.
func (a *App) loadIdentity(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		u, err := a.Sessions.Current(c)
		if err != nil {
			return err
		}
		if u != nil {
			c.Set(userContextKey, u)
		}
		return next(c)
	}
}

// CurrentUser returns the authenticated user for this request, or nil when anonymous.
func CurrentUser(c echo.Context) *User {
	u, _ := c.Get(userContextKey).(*User)
	return u
}

func addFlash(c echo.Context, msg string) error {
	sess, err := getSession(c)
	if err != nil {
		return err
	}
	sess.AddFlash(msg)
	return sess.Save(c.Request(), c.Response())
}

func popFlashes(c echo.Context) []string {
	sess, err := getSession(c)
	if err != nil {
		return nil
	}
	raw := sess.Flashes()
	if len(raw) == 0 {
		return nil
	}
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		c.Logger().Warnf("save session after reading flashes: %v", err)
	}
	msgs := make([]string, 0, len(raw))
	for _, f := range raw {
		if s, ok := f.(string); ok {
			msgs = append(msgs, s)
		}
	}
	return msgs
}
