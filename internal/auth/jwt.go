package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenKind string

const (
	AccessToken  TokenKind = "access"
	RefreshToken TokenKind = "refresh"
)

var ErrInvalidToken = errors.New("invalid token")

// Signer issues and verifies HS256 tokens.
type Signer struct {
	key        []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewSigner(secret, issuer string, accessTTL, refreshTTL time.Duration) *Signer {
	return &Signer{
		key:        []byte(secret),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// Sign returns a signed token for userID and its expiry.
func (s *Signer) Sign(userID string, roles []string, kind TokenKind) (string, time.Time, error) {
	ttl := s.accessTTL
	if kind == RefreshToken {
		ttl = s.refreshTTL
	}
	now := s.now()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":   userID,
		"roles": roles,
		"typ":   string(kind),
		"jti":   uuid.NewString(),
		"iss":   s.issuer,
		"exp":   exp.Unix(),
		"iat":   now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (s *Signer) Verify(tokenStr string) (Claims, error) {
	tok, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.key, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithIssuer(s.issuer), jwt.WithTimeFunc(s.now))
	if err != nil || !tok.Valid {
		return Claims{}, ErrInvalidToken
	}
	mapc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	sub, _ := mapc["sub"].(string)
	if sub == "" {
		return Claims{}, ErrInvalidToken
	}
	typ, _ := mapc["typ"].(string)
	jti, _ := mapc["jti"].(string)
	var roles []string
	if arr, ok := mapc["roles"].([]interface{}); ok {
		for _, v := range arr {
			if s, ok := v.(string); ok {
				roles = append(roles, s)
			}
		}
	}
	c := Claims{Subject: sub, Roles: roles, Kind: TokenKind(typ), ID: jti}
	if exp, err := mapc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	return c, nil
}
