package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"storefront-service/internal/domain"
)

// TokenKind discriminates access tokens from refresh tokens.
type TokenKind string

const (
	AccessToken  TokenKind = "access"
	RefreshToken TokenKind = "refresh"
)

// Claims is the JWT payload. Subject carries the user's email.
type Claims struct {
	Role      domain.Role `json:"role"`
	UserID    int64       `json:"id"`
	TokenType TokenKind   `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and parses tokens with a shared secret.
type TokenIssuer struct {
	secret     []byte
	method     jwt.SigningMethod
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenIssuer creates a TokenIssuer for an HMAC algorithm (HS256, HS384, HS512).
func NewTokenIssuer(secret, algorithm string, accessTTL, refreshTTL time.Duration) (*TokenIssuer, error) {
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("auth: unsupported signing algorithm %q", algorithm)
	}
	if secret == "" {
		return nil, errors.New("auth: empty signing secret")
	}
	return &TokenIssuer{
		secret:     []byte(secret),
		method:     method,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

// Issue signs a token of the given kind for user.
func (ti *TokenIssuer) Issue(user *domain.User, kind TokenKind) (string, error) {
	ttl := ti.accessTTL
	if kind == RefreshToken {
		ttl = ti.refreshTTL
	}
	now := ti.now()
	claims := Claims{
		Role:      user.Role,
		UserID:    user.ID,
		TokenType: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Email,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(ti.method, claims).SignedString(ti.secret)
	if err != nil {
		return "", fmt.Errorf("auth: failed to sign %s token: %w", kind, err)
	}
	return signed, nil
}

// Parse verifies the signature, algorithm, expiry and kind of a token.
// Every failure is an Unauthorized domain error.
func (ti *TokenIssuer) Parse(tokenStr string, kind TokenKind) (*Claims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{ti.method.Alg()}))
	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return ti.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.NewError(domain.KindUnauthorized, "could not validate token: it has expired")
		}
		return nil, domain.NewError(domain.KindUnauthorized, "could not validate token: payload decoding error")
	}
	if !token.Valid || claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, domain.NewError(domain.KindUnauthorized, "could not validate token: email or token_type is invalid")
	}
	if claims.TokenType != kind {
		return nil, domain.NewError(domain.KindUnauthorized, "could not validate token: email or token_type is invalid")
	}
	return claims, nil
}
