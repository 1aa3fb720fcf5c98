// Package middleware provides various middleware functionality.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/danilovkiri/dk-go-donations/internal/models/modelclaims"
	"github.com/danilovkiri/dk-go-donations/internal/service/secretary"
	"github.com/danilovkiri/dk-go-donations/internal/storage/v1/modelstorage"
)

type claimsKey struct{}

// TokenHandler sets object structure.
type TokenHandler struct {
	sec secretary.Secretary
}

// NewTokenHandler initializes a new token handler.
func NewTokenHandler(sec secretary.Secretary) (*TokenHandler, error) {
	if sec == nil {
		return nil, errors.New("nil secretary object was found")
	}
	return &TokenHandler{
		sec: sec,
	}, nil
}

// TokenHandle validates the bearer token and puts its claims into the request context.
func (c *TokenHandler) TokenHandle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := r.Header.Get("Authorization")
		if len(tokenString) == 0 {
			http.Error(w, "Token authorization required", http.StatusUnauthorized)
			return
		}
		tokenString = strings.TrimPrefix(tokenString, "Bearer ")
		claims, err := c.sec.ValidateToken(tokenString)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

// AdminOnly rejects requests whose token does not carry the admin role. It must run after TokenHandle.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok || claims.Role != modelstorage.RoleAdmin {
			http.Error(w, "Admin access required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func WithClaims(ctx context.Context, claims *modelclaims.MyCustomClaims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

func ClaimsFromContext(ctx context.Context) (*modelclaims.MyCustomClaims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*modelclaims.MyCustomClaims)
	return claims, ok && claims != nil
}
