package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ctxKey string

const (
	userKey      ctxKey = "userClaims"
	clientIPKey  ctxKey = "clientIP"
	userAgentKey ctxKey = "userAgent"
)

type Claims struct {
	Subject   string
	Roles     []string
	Kind      TokenKind
	ID        string
	ExpiresAt time.Time
}

func (c Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func WithClaims(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, userKey, c)
}

func FromContext(ctx context.Context) Claims {
	if v, ok := ctx.Value(userKey).(Claims); ok {
		return v
	}
	return Claims{}
}

func Subject(ctx context.Context) string {
	return FromContext(ctx).Subject
}

// SubjectID returns the authenticated user id, if any.
func SubjectID(ctx context.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(Subject(ctx))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func WithClientMetadata(ctx context.Context, ip, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey, ip)
	return context.WithValue(ctx, userAgentKey, userAgent)
}

func ClientIP(ctx context.Context) string {
	s, _ := ctx.Value(clientIPKey).(string)
	return s
}

func UserAgent(ctx context.Context) string {
	s, _ := ctx.Value(userAgentKey).(string)
	return s
}
