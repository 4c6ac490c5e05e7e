package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

type ctxKey int

const identityKey ctxKey = iota

// AuthMiddleware resolves the bearer token to a verified identity before
// any handler runs. Handlers never see raw credentials, only the identity.
type AuthMiddleware struct {
	gateway port.IdentityGateway
	log     *logrus.Logger
}

func NewAuthMiddleware(gateway port.IdentityGateway, log *logrus.Logger) *AuthMiddleware {
	return &AuthMiddleware{gateway: gateway, log: log}
}

// RequireAuth verifies the token and stores the identity in the request
// context. The account must carry at least one contact credential.
func (a *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, domain.ErrUnauthorized)
			return
		}

		ident, err := a.gateway.Verify(r.Context(), token)
		if err != nil {
			a.log.WithError(err).Debug("token verification failed")
			writeError(w, domain.ErrUnauthorized)
			return
		}
		if ident.Email == "" && ident.Phone == "" {
			writeError(w, domain.ErrUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, ident)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireUser additionally demands a provisioned local user; the user ID
// claim set at sign-up is the only accepted identity source.
func (a *AuthMiddleware) RequireUser(next http.Handler) http.Handler {
	return a.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident := IdentityFromContext(r.Context())
		if ident == nil || ident.UserID == "" {
			writeError(w, domain.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	}))
}

// IdentityFromContext returns the identity resolved by RequireAuth, or nil.
func IdentityFromContext(ctx context.Context) *port.Identity {
	ident, _ := ctx.Value(identityKey).(*port.Identity)
	return ident
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}
