package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// revokedTTL bounds how long a token without an exp claim stays revoked.
const revokedTTL = 24 * time.Hour

// JWTProvider validates HS256 session tokens signed with the auth server's
// shared secret. Sign-out is recorded in an in-process revocation set that
// forgets each token once it would have expired anyway.
type JWTProvider struct {
	secret []byte
	now    func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time
}

func NewJWTProvider(secret string) *JWTProvider {
	return &JWTProvider{
		secret:  []byte(secret),
		now:     time.Now,
		revoked: make(map[string]time.Time),
	}
}

func (p *JWTProvider) Current(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrNoSession
	}

	claims, err := p.parse(token)
	if err != nil {
		return nil, err
	}

	if p.isRevoked(token) {
		return nil, fmt.Errorf("%w: session signed out", ErrNoSession)
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("%w: missing user id in token", ErrNoSession)
	}
	email, _ := claims["email"].(string)

	s := &Session{UserID: sub, Email: email}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		s.ExpiresAt = exp.Time
	}
	return s, nil
}

func (p *JWTProvider) Invalidate(ctx context.Context, token string) error {
	claims, err := p.parse(token)
	if err != nil {
		return nil
	}

	until := p.now().Add(revokedTTL)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		until = exp.Time
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	for k, t := range p.revoked {
		if now.After(t) {
			delete(p.revoked, k)
		}
	}
	p.revoked[tokenKey(token)] = until
	return nil
}

func (p *JWTProvider) parse(token string) (jwt.MapClaims, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return p.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(p.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("%w: invalid token claims", ErrNoSession)
	}
	return claims, nil
}

func (p *JWTProvider) isRevoked(token string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	until, ok := p.revoked[tokenKey(token)]
	return ok && p.now().Before(until)
}

func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
