package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/ukydev/campus-rath/internal/models"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidSession = errors.New("invalid session")
	ErrEmptySecret    = errors.New("session secret must not be empty")
)

// PINGate checks driver PINs against the shared secret.
type PINGate struct {
	pin  []byte
	hash []byte
}

// NewPINGate creates a gate for a plaintext PIN or a bcrypt hash of it.
// When both are empty no input is ever accepted.
func NewPINGate(pin, pinHash string) *PINGate {
	return &PINGate{pin: []byte(pin), hash: []byte(pinHash)}
}

// Check reports whether input is the configured PIN.
func (g *PINGate) Check(input string) bool {
	if input == "" {
		return false
	}
	if len(g.hash) > 0 {
		return bcrypt.CompareHashAndPassword(g.hash, []byte(input)) == nil
	}
	if len(g.pin) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(g.pin, []byte(input)) == 1
}

// HashPIN hashes a PIN using bcrypt, for operators who prefer not to keep the
// PIN in plain text in the environment.
func HashPIN(pin string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash pin: %w", err)
	}
	return string(bytes), nil
}

// Service signs and verifies driver session cookies. The token only carries
// session state between requests; it has no expiry and grants nothing the
// state it encodes does not.
type Service struct {
	secret []byte
}

// NewService creates a new session signing service
func NewService(secret string) (*Service, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &Service{secret: []byte(secret)}, nil
}

// NewSession returns a fresh unauthenticated session with a random ID.
func (s *Service) NewSession() models.Session {
	return models.NewSession(uuid.NewString())
}

// IssueSession encodes a session into a signed token.
func (s *Service) IssueSession(session models.Session) (string, error) {
	session = session.Normalize()
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	claims := jwt.MapClaims{
		"sid":           session.ID,
		"authenticated": session.Authenticated,
		"screen":        string(session.Screen),
		"last_push":     session.LastPushAt,
		"iat":           time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ParseSession verifies a token and returns the session it carries.
func (s *Service) ParseSession(tokenString string) (models.Session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return models.Session{}, ErrInvalidSession
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return models.Session{}, ErrInvalidSession
	}

	id, ok := claims["sid"].(string)
	if !ok || id == "" {
		return models.Session{}, ErrInvalidSession
	}
	authenticated, ok := claims["authenticated"].(bool)
	if !ok {
		return models.Session{}, ErrInvalidSession
	}
	screen, ok := claims["screen"].(string)
	if !ok {
		return models.Session{}, ErrInvalidSession
	}
	lastPush, _ := claims["last_push"].(float64)

	return models.Session{
		ID:            id,
		Authenticated: authenticated,
		Screen:        models.Screen(screen),
		LastPushAt:    lastPush,
	}.Normalize(), nil
}
