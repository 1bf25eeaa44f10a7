// Package authn registers and authenticates users and issues their tokens.
package authn

import (
	"context"
	"time"

	"erpcore/internal/apperrors"
	"erpcore/internal/auth"
	"erpcore/internal/models"
	"erpcore/internal/services/user"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const invalidCredentials = "invalid email or password"

type TokenIssuer interface {
	Sign(userID string, roles []string, kind auth.TokenKind) (string, time.Time, error)
	Verify(token string) (auth.Claims, error)
}

type Result struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	TokenType    string       `json:"tokenType"`
	ExpiresAt    time.Time    `json:"expiresAt"`
	User         *models.User `json:"user"`
}

type TokenInfo struct {
	Valid     bool      `json:"valid"`
	Subject   string    `json:"subject,omitempty"`
	Roles     []string  `json:"roles,omitempty"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

type Gateway struct {
	users  *user.Directory
	tokens TokenIssuer
	hasher user.PasswordHasher
	lg     *zap.SugaredLogger
}

func NewGateway(users *user.Directory, tokens TokenIssuer, hasher user.PasswordHasher, lg *zap.SugaredLogger) *Gateway {
	return &Gateway{users: users, tokens: tokens, hasher: hasher, lg: lg}
}

// Register creates a regular user and signs them in.
func (g *Gateway) Register(ctx context.Context, in user.CreateInput) (*Result, error) {
	in.Role = models.RoleUser
	u, err := g.users.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	return g.issue(u)
}

func (g *Gateway) Login(ctx context.Context, email, password string) (*Result, error) {
	u, err := g.users.FindByEmail(ctx, email)
	if apperrors.HasCode(err, apperrors.CodeNotFound) {
		return nil, apperrors.Unauthorized(invalidCredentials)
	}
	if err != nil {
		return nil, err
	}
	if err := g.hasher.Verify(u.PasswordHash, password); err != nil {
		g.lg.Infow("login rejected", "user_id", u.ID, "reason", "password")
		return nil, apperrors.Unauthorized(invalidCredentials)
	}
	if !u.IsActive {
		g.lg.Infow("login rejected", "user_id", u.ID, "reason", "inactive")
		return nil, apperrors.Unauthorized(invalidCredentials)
	}
	full, err := g.users.Get(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	return g.issue(full)
}

// Refresh exchanges a refresh token for a new token pair.
func (g *Gateway) Refresh(ctx context.Context, refreshToken string) (*Result, error) {
	claims, err := g.tokens.Verify(refreshToken)
	if err != nil || claims.Kind != auth.RefreshToken {
		return nil, apperrors.Unauthorized("invalid refresh token")
	}
	u, err := g.subject(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	return g.issue(u)
}

// Validate reports whether token is a usable access token.
func (g *Gateway) Validate(ctx context.Context, token string) TokenInfo {
	claims, err := g.tokens.Verify(token)
	if err != nil || claims.Kind != auth.AccessToken {
		return TokenInfo{}
	}
	if _, err := g.subject(ctx, claims.Subject); err != nil {
		return TokenInfo{}
	}
	return TokenInfo{Valid: true, Subject: claims.Subject, Roles: claims.Roles, ExpiresAt: claims.ExpiresAt}
}

// Me returns the authenticated user with addresses.
func (g *Gateway) Me(ctx context.Context) (*models.User, error) {
	return g.subject(ctx, auth.Subject(ctx))
}

func (g *Gateway) subject(ctx context.Context, sub string) (*models.User, error) {
	id, err := uuid.Parse(sub)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid token subject")
	}
	u, err := g.users.Get(ctx, id)
	if apperrors.HasCode(err, apperrors.CodeNotFound) {
		return nil, apperrors.Unauthorized("user no longer exists")
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, apperrors.Unauthorized("account is inactive")
	}
	return u, nil
}

func (g *Gateway) issue(u *models.User) (*Result, error) {
	roles := []string{u.Role}
	access, exp, err := g.tokens.Sign(u.ID.String(), roles, auth.AccessToken)
	if err != nil {
		return nil, apperrors.Internal(err, "sign access token")
	}
	refresh, _, err := g.tokens.Sign(u.ID.String(), roles, auth.RefreshToken)
	if err != nil {
		return nil, apperrors.Internal(err, "sign refresh token")
	}
	return &Result{AccessToken: access, RefreshToken: refresh, TokenType: "Bearer", ExpiresAt: exp, User: u}, nil
}
