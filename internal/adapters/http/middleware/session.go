package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/securecookie"
)

// DefaultSessionTTL is how long a session lives when no TTL is configured.
const DefaultSessionTTL = 24 * time.Hour

// SessionCookieName is the name of the signed session cookie.
const SessionCookieName = "ellarises_session"

// Session is the server-side state of one login.
type Session struct {
	Token         string
	UserID        int64
	Email         string
	Level         string // "m" for managers, "u" otherwise
	ParticipantID int64  // zero until linked
	CreatedAt     time.Time
}

// IsManager reports whether the session belongs to a manager.
func (s Session) IsManager() bool {
	return s.Level == "m"
}

// SessionStore is an in-memory session store with a fixed lifetime.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionStore creates a store whose sessions expire after ttl.
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{sessions: make(map[string]Session), ttl: ttl, now: time.Now}
}

// TTL is the session lifetime.
func (ss *SessionStore) TTL() time.Duration {
	return ss.ttl
}

// Create starts a session and returns it with its token set.
// PRE: userID > 0
// POST: Session stored under a fresh random token
func (ss *SessionStore) Create(userID int64, email, level string, participantID int64) (Session, error) {
	token, err := generateToken()
	if err != nil {
		return Session{}, err
	}
	s := Session{
		Token:         token,
		UserID:        userID,
		Email:         email,
		Level:         level,
		ParticipantID: participantID,
		CreatedAt:     ss.now(),
	}
	ss.mu.Lock()
	ss.sessions[token] = s
	ss.mu.Unlock()
	return s, nil
}

// Get returns the live session for token. Expired sessions are removed.
func (ss *SessionStore) Get(token string) (Session, bool) {
	ss.mu.RLock()
	s, ok := ss.sessions[token]
	ss.mu.RUnlock()
	if !ok {
		return Session{}, false
	}
	if ss.now().Sub(s.CreatedAt) > ss.ttl {
		ss.Delete(token)
		return Session{}, false
	}
	return s, true
}

// SetParticipant records the participant linked to a live session.
// POST: Returns false when the session no longer exists
func (ss *SessionStore) SetParticipant(token string, participantID int64) bool {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	s, ok := ss.sessions[token]
	if !ok {
		return false
	}
	s.ParticipantID = participantID
	ss.sessions[token] = s
	return true
}

// Delete ends a session.
func (ss *SessionStore) Delete(token string) {
	ss.mu.Lock()
	delete(ss.sessions, token)
	ss.mu.Unlock()
}

// DeleteUser ends every session of a user, after the account is removed or demoted.
func (ss *SessionStore) DeleteUser(userID int64) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	for token, s := range ss.sessions {
		if s.UserID == userID {
			delete(ss.sessions, token)
		}
	}
}

// ClearParticipant unlinks a deleted participant from every session holding
// it. The gate then re-links or asks for a new profile on the next request.
func (ss *SessionStore) ClearParticipant(participantID int64) int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	n := 0
	for token, s := range ss.sessions {
		if s.ParticipantID == participantID {
			s.ParticipantID = 0
			ss.sessions[token] = s
			n++
		}
	}
	return n
}

// Sweep drops expired sessions.
func (ss *SessionStore) Sweep() int {
	now := ss.now()
	ss.mu.Lock()
	defer ss.mu.Unlock()
	n := 0
	for token, s := range ss.sessions {
		if now.Sub(s.CreatedAt) > ss.ttl {
			delete(ss.sessions, token)
			n++
		}
	}
	return n
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// CookieCodec signs the session token into the cookie so a forged or
// truncated cookie is rejected before the store is consulted.
type CookieCodec struct {
	sc     *securecookie.SecureCookie
	secure bool
	maxAge int
}

// NewCookieCodec signs cookies with secret. secure sets the Secure flag.
// PRE: len(secret) >= 32
func NewCookieCodec(secret []byte, ttl time.Duration, secure bool) *CookieCodec {
	maxAge := int(ttl / time.Second)
	sc := securecookie.New(secret, nil).MaxAge(maxAge)
	return &CookieCodec{sc: sc, secure: secure, maxAge: maxAge}
}

// Write sets the signed session cookie.
func (c *CookieCodec) Write(w http.ResponseWriter, token string) error {
	value, err := c.sc.Encode(SessionCookieName, token)
	if err != nil {
		return err
	}
	http.SetCookie(w, c.cookie(value, c.maxAge))
	return nil
}

// Read returns the token from a valid signed cookie.
func (c *CookieCodec) Read(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	var token string
	if err := c.sc.Decode(SessionCookieName, cookie.Value, &token); err != nil {
		return "", false
	}
	return token, true
}

// Clear expires the session cookie.
func (c *CookieCodec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie("", -1))
}

func (c *CookieCodec) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
