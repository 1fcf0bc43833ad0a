package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionTTL is the fallback validity period for session tokens.
const DefaultSessionTTL = 24 * time.Hour

// ErrInvalidSession signals a session token that failed validation for any
// reason: bad signature, wrong signing method, expiry, or missing claims.
var ErrInvalidSession = errors.New("invalid or expired session token")

// SessionConfig bundles the configuration required to build a SessionIssuer.
type SessionConfig struct {
	Secret string
	TTL    time.Duration
	Clock  func() time.Time
}

// sessionClaims is the claim set carried by issued session tokens.
type sessionClaims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

// SessionIssuer issues and validates signed, self-contained session tokens.
// It is stateless: validity is solely signature plus expiry, and revocation
// is not supported.
type SessionIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionIssuer constructs a SessionIssuer from the given configuration.
func NewSessionIssuer(cfg SessionConfig) (*SessionIssuer, error) {
	if cfg.Secret == "" {
		return nil, errors.New("session: secret must be provided")
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	return &SessionIssuer{
		secret: []byte(cfg.Secret),
		ttl:    ttl,
		now:    now,
	}, nil
}

// Issue signs a session token for the given user id.
func (s *SessionIssuer) Issue(userID string) (string, error) {
	if userID == "" {
		return "", errors.New("session: user id is required")
	}

	now := s.now()
	claims := &sessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("session: sign token: %w", err)
	}
	return signed, nil
}

// Validate parses a session token and returns the user id it was issued for.
// Returns ErrInvalidSession on bad signature, wrong method, or expiry.
func (s *SessionIssuer) Validate(tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrInvalidSession
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)

	var claims sessionClaims
	_, err := parser.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return "", ErrInvalidSession
	}

	if claims.UserID == "" {
		return "", ErrInvalidSession
	}

	return claims.UserID, nil
}
