package server

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/jrsteele09/go-clinic-client/token"
	"github.com/jrsteele09/go-clinic-client/users"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyUserID stores the authenticated user ID
	ContextKeyUserID ContextKey = "user_id"
	// ContextKeyClaims stores the verified access token
	ContextKeyClaims ContextKey = "claims"
)

// RequireAuth is middleware that validates a Bearer access token
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			vt, err := s.issuer.Verify(raw)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
				writeError(w, http.StatusUnauthorized, "invalid or expired access token")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUserID, vt.Subject)
			ctx = context.WithValue(ctx, ContextKeyClaims, vt)
			next(w, r.WithContext(ctx))
		}
	}
}

// RequireAnyRole must run after RequireAuth.
func (s *Server) RequireAnyRole(roles ...users.RoleType) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			vt, _ := r.Context().Value(ContextKeyClaims).(*token.VerifiedToken)
			if vt == nil || !slices.ContainsFunc(users.ParseRoles(vt.Roles), func(role users.RoleType) bool {
				return slices.Contains(roles, role)
			}) {
				writeError(w, http.StatusForbidden, "insufficient role")
				return
			}
			next(w, r)
		}
	}
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
