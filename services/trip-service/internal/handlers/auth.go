package handlers

import (
	"net/http"
	"strings"

	"github.com/lmeineke/tripsync/libs/auth"
	"github.com/lmeineke/tripsync/services/trip-service/internal/identity"
)

const actorHeader = "X-Actor-Id"

// TokenVerifier checks a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// HS256Verifier verifies tokens with a shared secret. Local development.
type HS256Verifier struct {
	Secret string
}

func (v HS256Verifier) Verify(token string) (*auth.Claims, error) {
	return auth.ParseAndVerifyHS256(token, v.Secret)
}

// JWKSVerifier verifies RS256 tokens against the identity provider's
// published keys.
type JWKSVerifier struct {
	Keys *auth.JWKSClient
}

func (v JWKSVerifier) Verify(token string) (*auth.Claims, error) {
	header, err := auth.ParseHeader(token)
	if err != nil {
		return nil, err
	}
	key, err := v.Keys.Get(header.Kid)
	if err != nil {
		return nil, auth.ErrInvalidToken
	}
	return auth.VerifyRS256(token, key)
}

// withIdentity resolves the caller from the actor header and the bearer
// token, if present. A missing identity is fine here; gated operations reject
// anonymous callers themselves. A present but invalid token is a hard 401.
func (s *Server) withIdentity(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident := identity.Identity{
			ActorID: strings.TrimSpace(r.Header.Get(actorHeader)),
		}

		if raw := r.Header.Get("Authorization"); raw != "" {
			token, ok := strings.CutPrefix(raw, "Bearer ")
			if !ok {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "malformed authorization header"})
				return
			}
			claims, err := s.verifier.Verify(strings.TrimSpace(token))
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
				return
			}
			ident.UserID = claims.Sub
			ident.Email = claims.Email
			ident.DisplayName = claims.DisplayName()
		}

		next(w, r.WithContext(identity.NewContext(r.Context(), ident)))
	}
}
