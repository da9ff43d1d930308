// internal/app/system/auth/auth.go

// Package auth manages the session cookie that supplies the acting user
// for every RPC call. The engines themselves never self-authenticate:
// handlers read the Actor out of the request context and pass it down
// explicitly.
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const (
	isAuthKey    = "is_authenticated"
	userIDKey    = "user_id"
	userNameKey  = "user_name"
	userEmailKey = "user_email"
	userRoleKey  = "user_role"
)

// SessionName is the cookie name; overridden from config at startup.
var SessionName = "orgdesk-session"

// Store is initialised once via InitSessionStore.
var Store *sessions.CookieStore

// Actor is the authenticated user behind a request. It is cached in
// the session and injected into r.Context().
type Actor struct {
	ID    string
	Name  string
	Email string
	Role  string
}

// IsAdmin reports whether the actor holds the global
// "edit full group tree" capability.
func (a *Actor) IsAdmin() bool {
	return a != nil && strings.EqualFold(a.Role, "admin")
}

type ctxKey string

const currentActorKey ctxKey = "currentActor"

// CurrentActor returns the actor and a found flag.
func CurrentActor(r *http.Request) (*Actor, bool) {
	a, ok := r.Context().Value(currentActorKey).(*Actor)
	return a, ok
}

// LoadSessionActor injects the actor into context if they are signed
// in. If the session store has not been initialized yet, it is a no-op.
func LoadSessionActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if Store == nil {
			next.ServeHTTP(w, r)
			return
		}

		sess, _ := Store.Get(r, SessionName)
		if isAuth, _ := sess.Values[isAuthKey].(bool); isAuth {
			a := &Actor{
				ID:    getString(sess, userIDKey),
				Name:  getString(sess, userNameKey),
				Email: getString(sess, userEmailKey),
				Role:  getString(sess, userRoleKey),
			}
			r = withActor(r, a)
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSignedIn rejects requests with no actor in context. The RPC
// surface is JSON-only, so the rejection is a JSON 401.
func RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentActor(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"code": "FORBIDDEN", "message": "sign in required"},
		})
	})
}

// SignIn writes the actor into the session cookie.
func SignIn(w http.ResponseWriter, r *http.Request, a *Actor) error {
	sess, _ := Store.Get(r, SessionName)
	sess.Values[isAuthKey] = true
	sess.Values[userIDKey] = a.ID
	sess.Values[userNameKey] = a.Name
	sess.Values[userEmailKey] = a.Email
	sess.Values[userRoleKey] = a.Role
	return sess.Save(r, w)
}

// SignOut clears the session cookie.
func SignOut(w http.ResponseWriter, r *http.Request) error {
	sess, _ := Store.Get(r, SessionName)
	sess.Options.MaxAge = -1
	for k := range sess.Values {
		delete(sess.Values, k)
	}
	return sess.Save(r, w)
}

// InitSessionStore initializes the global session Store. An empty key
// gets a random one (sessions then die with the process), which is
// acceptable only in dev.
func InitSessionStore(sessionKey, name, domain string, secure bool, logger *zap.Logger) error {
	key := []byte(sessionKey)
	if sessionKey == "" {
		key = securecookie.GenerateRandomKey(32)
		logger.Warn("session key is empty; generated a random per-process key")
	} else if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}

	store := sessions.NewCookieStore(key)
	opts := &sessions.Options{
		Domain:   domain,
		Path:     "/",
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if secure {
		opts.SameSite = http.SameSiteNoneMode
	}
	store.Options = opts

	if name != "" {
		SessionName = name
	}
	Store = store

	logger.Info("session store initialized",
		zap.Bool("secure", secure),
		zap.String("domain", domain))
	return nil
}

// WithTestActor injects an actor directly into the request context,
// bypassing the session middleware. Tests only.
func WithTestActor(r *http.Request, a *Actor) *http.Request {
	return withActor(r, a)
}

func withActor(r *http.Request, a *Actor) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentActorKey, a))
}

func getString(s *sessions.Session, key string) string {
	if v, ok := s.Values[key].(string); ok {
		return v
	}
	return ""
}
