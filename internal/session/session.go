// Package session wires scs session management to the SQLite sessions
// table and owns the session keys the handlers share.
package session

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
)

// Session keys. Handlers read and write these through the helpers below.
const (
	KeyUserID   = "user_id"
	KeyRedirect = "redirect_after_login"
)

// New builds the session manager backed by the sessions table.
func New(db *sql.DB, lifetime time.Duration, secureCookies bool) *scs.SessionManager {
	sm := scs.New()
	sm.Store = sqlite3store.New(db)
	sm.Lifetime = lifetime
	sm.Cookie.Name = "kb_session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = secureCookies
	return sm
}

// SignIn records the user in the session. The token is renewed first so a
// pre-login session ID cannot be fixed onto the authenticated session.
func SignIn(ctx context.Context, sm *scs.SessionManager, userID int64) error {
	if err := sm.RenewToken(ctx); err != nil {
		return fmt.Errorf("renewing session token: %w", err)
	}
	sm.Put(ctx, KeyUserID, userID)
	return nil
}

// SignOut destroys the session entirely.
func SignOut(ctx context.Context, sm *scs.SessionManager) error {
	return sm.Destroy(ctx)
}

// UserID returns the signed-in user's ID, or 0 when anonymous.
func UserID(ctx context.Context, sm *scs.SessionManager) int64 {
	id, _ := sm.Get(ctx, KeyUserID).(int64)
	return id
}

// PopRedirect returns and clears the post-login destination.
func PopRedirect(ctx context.Context, sm *scs.SessionManager) string {
	return sm.PopString(ctx, KeyRedirect)
}

// StashRedirect remembers where to send the user after login.
func StashRedirect(ctx context.Context, sm *scs.SessionManager, target string) {
	sm.Put(ctx, KeyRedirect, target)
}
