// Package cookie signs and verifies the opaque session cookie value.
//
// The value is a compact HS256 JWS whose only payload is the session id.
// Without the secret a reader can learn the id but cannot mint or alter one.
package cookie

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	id "hearthgate/pkg/domain"
	dErrors "hearthgate/pkg/domain-errors"
)

const (
	issuer   = "hearthgate"
	audience = "session_cookie"
)

// ErrEmptySecret is returned by NewSigner when no secret is configured.
var ErrEmptySecret = errors.New("cookie signing secret is empty")

type claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Signer issues and verifies signed session cookie values.
type Signer struct {
	secret []byte
	parser *jwt.Parser
}

// NewSigner constructs a Signer keyed with secret.
func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &Signer{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithAudience(audience),
		),
	}, nil
}

// Sign returns the cookie value for sessionID.
func (s *Signer) Sign(sessionID id.SessionID, issuedAt time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		SessionID: sessionID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   issuer,
			Audience: jwt.ClaimStrings{audience},
			IssuedAt: jwt.NewNumericDate(issuedAt),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "sign session cookie")
	}
	return signed, nil
}

// Verify checks the signature and returns the session id carried by value.
// Any tampering, foreign key, unexpected algorithm or malformed id yields an
// error with CodeUnauthorized.
func (s *Signer) Verify(value string) (id.SessionID, error) {
	var c claims
	token, err := s.parser.ParseWithClaims(value, &c, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return id.SessionID{}, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid session cookie")
	}
	sessionID, err := id.ParseSessionID(c.SessionID)
	if err != nil {
		return id.SessionID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid session cookie")
	}
	return sessionID, nil
}
