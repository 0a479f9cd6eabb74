package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"slices"

	"github.com/go-faster/errors"
)

// ErrUnauthorized is returned when an API key is missing or unknown.
var ErrUnauthorized = errors.New("unauthorized")

// ScopeAdmin grants catalog management.
const ScopeAdmin = "admin"

// APIKeyInfo holds the identity and permission data for a validated API key.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	Scopes  []string
}

// HasScope reports whether the key carries scope.
func (i APIKeyInfo) HasScope(scope string) bool {
	return slices.Contains(i.Scopes, scope)
}

// Repository provides lookup of API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}

type keyCtx struct{}

// WithKey returns a copy of ctx carrying the authenticated key.
func WithKey(ctx context.Context, info *APIKeyInfo) context.Context {
	return context.WithValue(ctx, keyCtx{}, info)
}

// KeyFrom returns the authenticated key stored in ctx, if any.
func KeyFrom(ctx context.Context) (*APIKeyInfo, bool) {
	info, ok := ctx.Value(keyCtx{}).(*APIKeyInfo)
	return info, ok && info != nil
}

// Actor returns the name recorded in audit entries for the caller.
func Actor(ctx context.Context) string {
	if info, ok := KeyFrom(ctx); ok {
		if info.Name != "" {
			return info.Name
		}
		return info.ID
	}
	return "system"
}

// HashKey returns the hex HMAC-SHA256 of key under pepper, the form keys are
// stored in.
func HashKey(pepper []byte, key string) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}
