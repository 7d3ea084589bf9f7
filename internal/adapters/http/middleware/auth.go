package middleware

import (
	"context"
	"net/http"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

const sessionContextKey contextKey = "session"

// Auth loads the session named by the signed cookie into the request context.
// It never blocks a request; the Gate decides what an anonymous request may see.
func Auth(sessions *SessionStore, cookies *CookieCodec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token, ok := cookies.Read(r); ok {
				if s, ok := sessions.Get(token); ok {
					r = r.WithContext(ContextWithSession(r.Context(), s))
				} else {
					cookies.Clear(w)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SessionFromContext returns the request's session, if logged in.
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionContextKey).(Session)
	return s, ok
}

// ContextWithSession returns ctx carrying s.
func ContextWithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, s)
}

// IsManager reports whether the request is from a logged-in manager.
func IsManager(ctx context.Context) bool {
	s, ok := SessionFromContext(ctx)
	return ok && s.IsManager()
}
