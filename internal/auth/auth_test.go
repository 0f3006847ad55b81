package auth

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/campus-rath/internal/models"
)

func TestPINGate_Check(t *testing.T) {
	gate := NewPINGate("2468", "")

	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"correct pin", "2468", true},
		{"wrong pin", "1357", false},
		{"prefix of pin", "246", false},
		{"pin with suffix", "24680", false},
		{"empty input", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, gate.Check(tt.input))
		})
	}
}

func TestPINGate_EmptySecretNeverMatches(t *testing.T) {
	gate := NewPINGate("", "")
	assert.False(t, gate.Check(""))
	assert.False(t, gate.Check("0000"))
}

func TestPINGate_Hash(t *testing.T) {
	hash, err := HashPIN("2468")
	require.NoError(t, err)
	assert.NotEqual(t, "2468", hash)

	gate := NewPINGate("ignored-when-hash-set", hash)
	assert.True(t, gate.Check("2468"))
	assert.False(t, gate.Check("ignored-when-hash-set"))
}

func TestNewService(t *testing.T) {
	service, err := NewService("secret")
	assert.NoError(t, err)
	assert.NotNil(t, service)

	_, err = NewService("")
	assert.Equal(t, ErrEmptySecret, err)
}

func TestService_SessionRoundTrip(t *testing.T) {
	service, _ := NewService("secret")

	session := models.Session{ID: "sid-1", Authenticated: true, Screen: models.ScreenOnline, LastPushAt: 1715003456}
	token, err := service.IssueSession(session)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	parsed, err := service.ParseSession(token)
	require.NoError(t, err)
	assert.Equal(t, session, parsed)
}

func TestService_IssueSessionNormalizes(t *testing.T) {
	service, _ := NewService("secret")

	token, err := service.IssueSession(models.Session{Screen: models.ScreenOnline, LastPushAt: 9})
	require.NoError(t, err)

	parsed, err := service.ParseSession(token)
	require.NoError(t, err)
	assert.NotEmpty(t, parsed.ID)
	assert.False(t, parsed.Authenticated)
	assert.Equal(t, models.ScreenQuestion, parsed.Screen)
	assert.Zero(t, parsed.LastPushAt)
}

func TestService_ParseSessionRejects(t *testing.T) {
	service, _ := NewService("secret")
	other, _ := NewService("other-secret")

	token, _ := other.IssueSession(models.NewSession("sid"))
	_, err := service.ParseSession(token)
	assert.Equal(t, ErrInvalidSession, err)

	_, err = service.ParseSession("not-a-token")
	assert.Equal(t, ErrInvalidSession, err)

	// A correctly signed token that is missing the session claims.
	bare, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "x"}).SignedString([]byte("secret"))
	_, err = service.ParseSession(bare)
	assert.Equal(t, ErrInvalidSession, err)
}

func TestService_NewSession(t *testing.T) {
	service, _ := NewService("secret")
	a := service.NewSession()
	b := service.NewSession()
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.Authenticated)
	assert.Equal(t, models.ScreenQuestion, a.Screen)
}
