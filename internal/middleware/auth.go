package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/campus-rath/internal/auth"
	"github.com/ukydev/campus-rath/internal/models"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	SessionContextKey contextKey = "session"
)

// SessionCookieName is the cookie carrying the signed driver session.
const SessionCookieName = "rath_session"

// SessionMiddleware restores the driver session from its cookie
type SessionMiddleware struct {
	authService *auth.Service
}

// NewSessionMiddleware creates a new session middleware
func NewSessionMiddleware(authService *auth.Service) *SessionMiddleware {
	return &SessionMiddleware{
		authService: authService,
	}
}

// Load puts the request's session into its context. A missing, tampered or
// otherwise invalid cookie yields a fresh unauthenticated session.
func (m *SessionMiddleware) Load(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := m.fromCookie(r)
		if !ok {
			session = m.authService.NewSession()
		}
		ctx := context.WithValue(r.Context(), SessionContextKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *SessionMiddleware) fromCookie(r *http.Request) (models.Session, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return models.Session{}, false
	}
	session, err := m.authService.ParseSession(cookie.Value)
	if err != nil {
		log.WithError(err).Debug("Discarding session cookie")
		return models.Session{}, false
	}
	return session, true
}

// Save signs session and sets it as a browser-session cookie.
func (m *SessionMiddleware) Save(w http.ResponseWriter, r *http.Request, session models.Session) error {
	token, err := m.authService.IssueSession(session)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// GetSessionFromContext extracts the driver session from request context
func GetSessionFromContext(ctx context.Context) (models.Session, bool) {
	session, ok := ctx.Value(SessionContextKey).(models.Session)
	return session, ok
}

// Logging logs each request at debug level
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start),
		}).Debug("Handled request")
	})
}

// RateLimitMiddleware provides basic rate limiting
type RateLimitMiddleware struct {
	requests  map[string][]int64 // IP -> timestamps
	lastSweep int64
	mu        sync.Mutex
	now       func() time.Time
}

// NewRateLimitMiddleware creates a new rate limiting middleware
func NewRateLimitMiddleware() *RateLimitMiddleware {
	return &RateLimitMiddleware{
		requests: make(map[string][]int64),
		now:      time.Now,
	}
}

// RateLimit applies rate limiting based on IP address. A non-positive
// maxRequests disables the limit.
func (m *RateLimitMiddleware) RateLimit(maxRequests int, windowSeconds int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if maxRequests <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !m.Allow(r, maxRequests, windowSeconds) {
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Allow counts one request from the client behind r and reports whether it
// fits within maxRequests per window. A non-positive maxRequests always allows.
func (m *RateLimitMiddleware) Allow(r *http.Request, maxRequests int, windowSeconds int) bool {
	if maxRequests <= 0 {
		return true
	}
	clientIP := getClientIP(r)
	if !m.allow(clientIP, maxRequests, windowSeconds) {
		log.WithField("ip", clientIP).Warn("Rate limit exceeded")
		return false
	}
	return true
}

func (m *RateLimitMiddleware) allow(clientIP string, maxRequests int, windowSeconds int) bool {
	now := m.now().Unix()
	windowStart := now - int64(windowSeconds)

	m.mu.Lock()
	defer m.mu.Unlock()

	if now-m.lastSweep >= int64(windowSeconds) {
		m.sweep(windowStart)
		m.lastSweep = now
	}

	var valid []int64
	for _, ts := range m.requests[clientIP] {
		if ts > windowStart {
			valid = append(valid, ts)
		}
	}
	if len(valid) >= maxRequests {
		m.requests[clientIP] = valid
		return false
	}
	m.requests[clientIP] = append(valid, now)
	return true
}

// sweep forgets clients with no requests inside the window.
func (m *RateLimitMiddleware) sweep(windowStart int64) {
	for ip, timestamps := range m.requests {
		if len(timestamps) == 0 || timestamps[len(timestamps)-1] <= windowStart {
			delete(m.requests, ip)
		}
	}
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	// Check for forwarded headers first
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return strings.TrimSpace(strings.Split(ip, ",")[0])
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}

	ip := r.RemoteAddr
	if colonIndex := strings.LastIndex(ip, ":"); colonIndex != -1 {
		ip = ip[:colonIndex]
	}
	return ip
}
