// Package auth protects the admin tier configuration with a shared password
// and in-memory session tokens.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	CookieName    = "cartepays_session"
	SessionExpiry = 12 * time.Hour
)

// Words for generated admin passwords
var mapWords = []string{
	"atlas", "boussole", "carte", "cap", "delta",
	"equateur", "fleuve", "globe", "isthme", "latitude",
	"longitude", "meridien", "mont", "ocean", "pole",
	"relief", "rose", "tropique", "vallee",
}

// Auth handles admin authentication
type Auth struct {
	password string
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]time.Time
}

// New creates a new Auth instance with the given password
func New(password string) *Auth {
	return &Auth{
		password: password,
		now:      time.Now,
		sessions: make(map[string]time.Time),
	}
}

// GeneratePassword creates a random 3-word password
func GeneratePassword() string {
	words := make([]string, 3)
	for i := range words {
		words[i] = mapWords[randomInt(len(mapWords))]
	}
	return strings.Join(words, "-")
}

// Login validates the password and returns a session token if valid
func (a *Auth) Login(password string) (string, bool) {
	if a.password == "" || subtle.ConstantTimeCompare([]byte(password), []byte(a.password)) != 1 {
		return "", false
	}

	token := generateToken()
	a.mu.Lock()
	a.sessions[token] = a.now().Add(SessionExpiry)
	a.mu.Unlock()
	return token, true
}

// Logout invalidates a session token
func (a *Auth) Logout(token string) {
	a.mu.Lock()
	delete(a.sessions, token)
	a.mu.Unlock()
}

// ValidateSession checks if a session token is valid. Expired tokens are
// dropped on lookup.
func (a *Auth) ValidateSession(token string) bool {
	a.mu.RLock()
	expiry, exists := a.sessions[token]
	a.mu.RUnlock()
	if !exists {
		return false
	}

	if a.now().After(expiry) {
		a.mu.Lock()
		delete(a.sessions, token)
		a.mu.Unlock()
		return false
	}
	return true
}

// SessionCount returns the number of live and not yet pruned sessions
func (a *Auth) SessionCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.sessions)
}

// GetSessionFromRequest validates the session cookie or, for scripted
// hosts, an "Authorization: Bearer <token>" header.
func (a *Auth) GetSessionFromRequest(r *http.Request) bool {
	if cookie, err := r.Cookie(CookieName); err == nil && a.ValidateSession(cookie.Value) {
		return true
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return a.ValidateSession(strings.TrimSpace(token))
	}
	return false
}

// RequireAuth middleware for admin pages (redirects to login)
func (a *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.GetSessionFromRequest(r) {
			next.ServeHTTP(w, r)
			return
		}
		http.Redirect(w, r, "/admin/login", http.StatusFound)
	})
}

// RequireAuthAPI middleware for API endpoints (returns 401)
func (a *Auth) RequireAuthAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.GetSessionFromRequest(r) {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code":"UNAUTHORIZED","error":"Unauthorized - please log in"}`))
	})
}

// SetSessionCookie sets the session cookie on the response
func SetSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(SessionExpiry.Seconds()),
	})
}

// ClearSessionCookie removes the session cookie
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

func generateToken() string {
	b := make([]byte, 32)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// randomInt returns a uniform random int in [0, max)
func randomInt(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0
	}
	return int(n.Int64())
}
