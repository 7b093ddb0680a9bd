package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/slotshare/internal/auth"
	"github.com/dukerupert/slotshare/internal/model"
)

const SessionCookieName = "slotshare_session"

// SessionLookup resolves a session token.
type SessionLookup interface {
	GetByToken(token string) (*model.Session, error)
}

// RoleResolver maps an identity to its current role.
type RoleResolver interface {
	Resolve(userID string) (string, error)
}

// SessionToken returns the session token from the session cookie or an
// "Authorization: Bearer" header.
func SessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if h := r.Header.Get("Authorization"); len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// Authenticator turns session tokens into an auth.AuthContext. The role is
// resolved on every request so role changes apply immediately.
type Authenticator struct {
	sessions SessionLookup
	roles    RoleResolver
	logger   *slog.Logger
}

func NewAuthenticator(sessions SessionLookup, roles RoleResolver, logger *slog.Logger) *Authenticator {
	return &Authenticator{sessions: sessions, roles: roles, logger: logger}
}

func (a *Authenticator) authenticate(r *http.Request) (auth.AuthContext, bool) {
	token := SessionToken(r)
	if token == "" {
		return auth.AuthContext{}, false
	}
	sess, err := a.sessions.GetByToken(token)
	if err != nil {
		a.logger.Error("look up session", "error", err)
		return auth.AuthContext{}, false
	}
	if sess == nil {
		return auth.AuthContext{}, false
	}
	role, err := a.roles.Resolve(sess.UserID)
	if err != nil {
		a.logger.Error("resolve role", "user_id", sess.UserID, "error", err)
		return auth.AuthContext{}, false
	}
	return auth.AuthContext{UserID: sess.UserID, Role: role, SessionID: sess.ID}, true
}

// RequireAuth rejects requests without a valid session with 401.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac, ok := a.authenticate(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "sign in required")
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithAuth(r.Context(), ac)))
	})
}

// OptionalAuth attaches the AuthContext when a valid session is present and
// otherwise serves the request anonymously.
func (a *Authenticator) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ac, ok := a.authenticate(r); ok {
			r = r.WithContext(auth.WithAuth(r.Context(), ac))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole allows only the listed roles. It must run after RequireAuth.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, ok := auth.FromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized", "sign in required")
				return
			}
			for _, role := range roles {
				if ac.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "forbidden", "forbidden")
		})
	}
}

// RequireAdmin checks that the authenticated user has the admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return RequireRole(model.RoleAdmin)(next)
}
