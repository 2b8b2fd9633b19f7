package cookie

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "hearthgate/pkg/domain"
	dErrors "hearthgate/pkg/domain-errors"
)

func newSigner(t *testing.T, secret string) *Signer {
	t.Helper()
	s, err := NewSigner(secret)
	require.NoError(t, err)
	return s
}

func TestNewSignerRequiresSecret(t *testing.T) {
	_, err := NewSigner("")
	assert.ErrorIs(t, err, ErrEmptySecret)
}

func TestSignVerifyRoundTrip(t *testing.T) {
	signer := newSigner(t, "secret-a")
	sessionID := id.NewSessionID()

	value, err := signer.Sign(sessionID, time.Now())
	require.NoError(t, err)

	got, err := signer.Verify(value)
	require.NoError(t, err)
	assert.Equal(t, sessionID, got)
}

func TestVerifyRejects(t *testing.T) {
	signer := newSigner(t, "secret-a")
	valid, err := signer.Sign(id.NewSessionID(), time.Now())
	require.NoError(t, err)

	foreign, err := newSigner(t, "secret-b").Sign(id.NewSessionID(), time.Now())
	require.NoError(t, err)

	parts := strings.Split(valid, ".")
	require.Len(t, parts, 3)
	otherPayload := strings.Split(foreign, ".")[1]
	spliced := parts[0] + "." + otherPayload + "." + parts[2]

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims{
		SessionID: id.NewSessionID().String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   issuer,
			Audience: jwt.ClaimStrings{audience},
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	badID, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		SessionID: "not-a-uuid",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   issuer,
			Audience: jwt.ClaimStrings{audience},
		},
	}).SignedString([]byte("secret-a"))
	require.NoError(t, err)

	wrongAudience, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		SessionID: id.NewSessionID().String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   issuer,
			Audience: jwt.ClaimStrings{"access_token"},
		},
	}).SignedString([]byte("secret-a"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		value string
	}{
		{"empty", ""},
		{"garbage", "definitely-not-a-token"},
		{"raw session id", id.NewSessionID().String()},
		{"signed with another secret", foreign},
		{"payload swapped", spliced},
		{"truncated signature", valid[:len(valid)-4]},
		{"alg none", unsigned},
		{"malformed session id", badID},
		{"wrong audience", wrongAudience},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := signer.Verify(tt.value)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
		})
	}
}
