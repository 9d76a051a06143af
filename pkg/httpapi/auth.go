package httpapi

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"sync"
	"time"
)

// sessionTTL is how long a login cookie remains valid.
const sessionTTL = 12 * time.Hour

// auth gates every route except /metrics and the login route behind
// either a valid X-Api-Key header or a session cookie previously
// minted by handleLogin. An empty key set disables auth entirely.
type auth struct {
	keys map[string]struct{}

	mu       sync.Mutex
	sessions map[string]time.Time
}

func newAuth(keys []string) *auth {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return &auth{keys: set, sessions: make(map[string]time.Time)}
}

func (a *auth) enabled() bool {
	return len(a.keys) > 0
}

func (a *auth) validKey(key string) bool {
	_, ok := a.keys[key]
	return ok
}

func (a *auth) mint() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	token := hex.EncodeToString(b[:])

	a.mu.Lock()
	defer a.mu.Unlock()
	a.sessions[token] = time.Now().Add(sessionTTL)
	return token
}

func (a *auth) validSession(token string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	exp, ok := a.sessions[token]
	if !ok {
		return false
	}
	if time.Now().After(exp) {
		delete(a.sessions, token)
		return false
	}
	return true
}

// handleLogin exchanges a valid X-Api-Key for a session cookie, so a
// browser-driven UI doesn't need to hold the raw key in JS-accessible
// storage.
func (a *auth) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !a.enabled() {
		writeJSON(w, http.StatusOK, map[string]string{"status": "auth disabled"})
		return
	}
	key := r.Header.Get("X-Api-Key")
	if !a.validKey(key) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid api key"})
		return
	}
	token := a.mint()
	http.SetCookie(w, &http.Cookie{
		Name:     "pvc_session",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Now().Add(sessionTTL),
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// protect wraps next, rejecting requests that carry neither a valid
// X-Api-Key header nor a valid session cookie. A no-op when auth is
// disabled.
func (a *auth) protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.enabled() {
			next.ServeHTTP(w, r)
			return
		}
		if a.validKey(r.Header.Get("X-Api-Key")) {
			next.ServeHTTP(w, r)
			return
		}
		if c, err := r.Cookie("pvc_session"); err == nil && a.validSession(c.Value) {
			next.ServeHTTP(w, r)
			return
		}
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing or invalid credentials"})
	})
}
