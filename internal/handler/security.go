package handler

import (
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/league-pricing/internal/domain/auth"
)

var errForbidden = errors.New("forbidden")

// APIKeyHeader carries the admin API key. The legacy "api_key" header is
// accepted too.
const APIKeyHeader = "X-API-Key"

// SecurityHandler authenticates admin requests via HMAC-SHA256 hashed API
// keys.
type SecurityHandler struct {
	apikeys auth.Repository
	pepper  []byte
}

// NewSecurityHandler creates a SecurityHandler with the given API key
// repository and HMAC pepper.
func NewSecurityHandler(apikeys auth.Repository, pepper []byte) *SecurityHandler {
	return &SecurityHandler{
		apikeys: apikeys,
		pepper:  pepper,
	}
}

// Require rejects requests without a valid key carrying scope. The key is
// stored in the request context for audit attribution.
func (s *SecurityHandler) Require(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info, err := s.authenticate(r)
			if err != nil {
				fail(w, r, err)
				return
			}
			if !info.HasScope(scope) {
				zctx.From(r.Context()).Warn("API key lacks scope",
					zap.String("key_id", info.ID),
					zap.String("scope", scope),
				)
				fail(w, r, errForbidden)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithKey(r.Context(), info)))
		})
	}
}

func (s *SecurityHandler) authenticate(r *http.Request) (*auth.APIKeyInfo, error) {
	key := strings.TrimSpace(r.Header.Get(APIKeyHeader))
	if key == "" {
		key = strings.TrimSpace(r.Header.Get("api_key"))
	}
	if key == "" {
		return nil, auth.ErrUnauthorized
	}

	hexHash := auth.HashKey(s.pepper, key)
	info, err := s.apikeys.FindByHash(r.Context(), hexHash)
	if err != nil {
		if !errors.Is(err, auth.ErrUnauthorized) {
			zctx.From(r.Context()).Error("API key lookup failed", zap.Error(err))
		}
		return nil, auth.ErrUnauthorized
	}

	// The lookup is by hash, so a mismatch here means the repository returned
	// the wrong row.
	computed, _ := hex.DecodeString(hexHash)
	stored, err := hex.DecodeString(info.KeyHash)
	if err != nil || subtle.ConstantTimeCompare(computed, stored) != 1 {
		return nil, auth.ErrUnauthorized
	}
	return info, nil
}
