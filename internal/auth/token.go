package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "backoffice"

const (
	// SessionTTL is the lifetime of a full-session token.
	SessionTTL = 7 * 24 * time.Hour
	// ShortTTL is the lifetime of short-lived action tokens such as
	// password-reset links.
	ShortTTL = 15 * time.Minute
)

var (
	// ErrTokenExpired reports a token with a valid signature past expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenMalformed reports a structurally invalid token.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrInvalidToken reports any other verification failure.
	ErrInvalidToken = errors.New("invalid token")
)

// Claims are the verified token claims carried by every session.
type Claims struct {
	UserID int64  `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Photo  string `json:"photo"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies session tokens using HS256.
type TokenService struct {
	secret []byte
	now    func() time.Time
}

// TokenOption configures TokenService behavior.
type TokenOption func(*TokenService)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) TokenOption {
	return func(s *TokenService) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewTokenService constructs a TokenService with the signing secret.
func NewTokenService(secret string, opts ...TokenOption) (*TokenService, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: token secret is not configured")
	}
	s := &TokenService{secret: []byte(secret), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Generate signs a token for the principal with the given lifetime.
func (s *TokenService) Generate(p Principal, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", errors.New("ttl must be greater than zero")
	}
	now := s.now().UTC()
	claims := Claims{
		UserID: p.ID,
		Email:  p.Email,
		Name:   p.Name,
		Phone:  p.Phone,
		Photo:  p.Photo,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// GenerateSession signs a full-session token.
func (s *TokenService) GenerateSession(p Principal) (string, error) {
	return s.Generate(p, SessionTTL)
}

// GenerateShort signs a short-lived action token.
func (s *TokenService) GenerateShort(p Principal) (string, error) {
	return s.Generate(p, ShortTTL)
}

// ParseAndValidate verifies the token and returns its claims. Expired and
// malformed tokens are distinguished so the boundary can report them.
func (s *TokenService) ParseAndValidate(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrTokenMalformed
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrTokenMalformed
		default:
			return nil, ErrInvalidToken
		}
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Issuer != issuer || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
