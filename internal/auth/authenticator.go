package auth

import (
	"context"
	"fmt"

	"storefront-service/internal/domain"
)

// UserLookup is the slice of the user store the authenticator needs.
type UserLookup interface {
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
}

// TokenPair is returned by a successful login.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// Authenticator ties token validation to the stored user state.
type Authenticator struct {
	tokens *TokenIssuer
	users  UserLookup
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(tokens *TokenIssuer, users UserLookup) *Authenticator {
	return &Authenticator{tokens: tokens, users: users}
}

// Validate parses a token of the expected kind and returns the active user
// it was issued for. Claims other than the subject are not trusted.
func (a *Authenticator) Validate(ctx context.Context, token string, expectRefresh bool) (*domain.User, error) {
	kind := AccessToken
	if expectRefresh {
		kind = RefreshToken
	}
	claims, err := a.tokens.Parse(token, kind)
	if err != nil {
		return nil, err
	}
	return a.activeUser(ctx, claims.Subject)
}

// Login checks credentials and issues an access and refresh token.
func (a *Authenticator) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := a.users.GetUserByEmail(ctx, email)
	if err != nil && !domain.IsKind(err, domain.KindNotFound) {
		return nil, fmt.Errorf("auth: login lookup failed: %w", err)
	}
	if user == nil || !user.IsActive || !VerifyPassword(password, user.HashedPassword) {
		return nil, domain.NewError(domain.KindUnauthorized, "incorrect email or password")
	}

	access, err := a.tokens.Issue(user, AccessToken)
	if err != nil {
		return nil, err
	}
	refresh, err := a.tokens.Issue(user, RefreshToken)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

// RotateRefreshToken exchanges a refresh token for a new refresh token.
func (a *Authenticator) RotateRefreshToken(ctx context.Context, refreshToken string) (string, error) {
	return a.reissue(ctx, refreshToken, RefreshToken)
}

// NewAccessToken exchanges a refresh token for a new access token.
func (a *Authenticator) NewAccessToken(ctx context.Context, refreshToken string) (string, error) {
	return a.reissue(ctx, refreshToken, AccessToken)
}

func (a *Authenticator) reissue(ctx context.Context, refreshToken string, kind TokenKind) (string, error) {
	user, err := a.Validate(ctx, refreshToken, true)
	if err != nil {
		return "", err
	}
	return a.tokens.Issue(user, kind)
}

func (a *Authenticator) activeUser(ctx context.Context, email string) (*domain.User, error) {
	user, err := a.users.GetUserByEmail(ctx, email)
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return nil, domain.NewError(domain.KindUnauthorized, "could not validate token: inactive user")
		}
		return nil, fmt.Errorf("auth: user lookup failed: %w", err)
	}
	if !user.IsActive {
		return nil, domain.NewError(domain.KindUnauthorized, "could not validate token: inactive user")
	}
	return user, nil
}
