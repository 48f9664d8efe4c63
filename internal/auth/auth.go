package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"nutriadmin.org/internal/ids"
)

const (
	defaultIssuer = "nutriadmin"
	defaultTTL    = 48 * time.Hour
	clockSkew     = 5 * time.Second
)

var (
	// ErrInvalidToken indicates the token failed validation.
	ErrInvalidToken  = errors.New("invalid token")
	errMissingSecret = errors.New("auth secret is not configured")
)

// Claims is the verified view of an access token.
type Claims struct {
	UserID      string   `json:"nameid"`
	UserName    string   `json:"unique_name"`
	Email       string   `json:"email"`
	Roles       []string `json:"role"`
	FirstName   string   `json:"name,omitempty"`
	LastName    string   `json:"last_name,omitempty"`
	Agency      string   `json:"agency,omitempty"`
	AgencyID    string   `json:"agencyId,omitempty"`
	Programs    []string `json:"program,omitempty"`
	ProgramIDs  []string `json:"programId,omitempty"`
	Permissions []string `json:"permission,omitempty"`
	jwt.RegisteredClaims
}

// Token is the login response body.
type Token struct {
	TokenType   string `json:"token_type"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// TokenService signs and verifies HS256 access tokens.
type TokenService struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// TokenOption configures TokenService behavior.
type TokenOption func(*TokenService) error

// WithIssuer overrides the token issuer claim.
func WithIssuer(issuer string) TokenOption {
	return func(s *TokenService) error {
		if v := strings.TrimSpace(issuer); v != "" {
			s.issuer = v
		}
		return nil
	}
}

// WithAudience sets the audience claim issued and required on verification.
func WithAudience(audience string) TokenOption {
	return func(s *TokenService) error {
		s.audience = strings.TrimSpace(audience)
		return nil
	}
}

// WithTTL configures access token lifetime.
func WithTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) error {
		if ttl <= 0 {
			return errors.New("auth: ttl must be greater than zero")
		}
		s.ttl = ttl
		return nil
	}
}

// WithClock overrides time source (useful for tests).
func WithClock(fn func() time.Time) TokenOption {
	return func(s *TokenService) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

func NewTokenService(secret string, opts ...TokenOption) (*TokenService, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errMissingSecret
	}
	s := &TokenService{
		secret: []byte(secret),
		issuer: defaultIssuer,
		ttl:    defaultTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// TTL is the lifetime of issued tokens.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// Issue signs the identity claims built by BuildClaims together with the
// registered claims (sub, iss, aud, iat, nbf, exp, jti).
func (s *TokenService) Issue(id Identity) (Token, error) {
	if strings.TrimSpace(id.UserID) == "" {
		return Token{}, errors.New("userID is required")
	}
	now := s.now().UTC()
	claims := BuildClaims(id)
	claims["sub"] = id.UserID
	claims["iss"] = s.issuer
	if s.audience != "" {
		claims["aud"] = s.audience
	}
	claims["iat"] = now.Unix()
	claims["nbf"] = now.Unix()
	claims["exp"] = now.Add(s.ttl).Unix()
	claims["jti"] = ids.New()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{TokenType: "Bearer", AccessToken: signed, ExpiresIn: int64(s.ttl / time.Second)}, nil
}

// ParseAndValidate verifies the token signature and required claims.
func (s *TokenService) ParseAndValidate(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkew),
		jwt.WithTimeFunc(s.now),
	}
	if s.audience != "" {
		opts = append(opts, jwt.WithAudience(s.audience))
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	return claims, nil
}
