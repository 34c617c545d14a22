package http

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/reeutil/reeutil/internal/auth/domain"
	"github.com/reeutil/reeutil/internal/auth/service"
	"github.com/reeutil/reeutil/pkg/authapi"
	"github.com/reeutil/reeutil/pkg/httpx"
	"github.com/reeutil/reeutil/pkg/jwtx"
	"github.com/reeutil/reeutil/pkg/slogx"
)

type ctxKey string

const ctxKeyPrincipal ctxKey = "principal"

// principalFrom returns the authenticated principal injected by
// AuthnMiddleware, if any.
func principalFrom(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(ctxKeyPrincipal).(domain.Principal)
	return p, ok
}

// AuthnMiddleware verifies the bearer session token and re-resolves the
// principal from the store on every request. A valid token whose record has
// since been deleted yields 401, so deletion revokes access immediately
// rather than at token expiry.
func AuthnMiddleware(verifier jwtx.Verifier, accounts *service.AccountService) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, ok := bearerToken(r)
			if !ok {
				authapi.ErrUnauthorized.WriteError(w)
				return
			}

			claims, err := verifier.Verify(raw)
			if err != nil {
				log.Debug("session token rejected", "err", err)
				authapi.ErrUnauthorized.WriteError(w)
				return
			}

			principal, err := accounts.GetPrincipal(ctx, domain.Kind(claims.Kind), claims.Subject)
			if err != nil {
				if errors.Is(err, service.ErrPrincipalGone) {
					log.Warn("session references a deleted principal", "principal_id", claims.Subject)
					authapi.ErrUnauthorized.WriteError(w)
					return
				}
				log.Error("principal resolution failed", "err", err)
				authapi.ErrDependencyFailure.WriteError(w)
				return
			}

			ctx = context.WithValue(ctx, ctxKeyPrincipal, principal)
			ctx = context.WithValue(ctx, httpx.CtxKeyPrincipalID, principal.ID())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRoles gates a route on role membership. Employees hold the "admin"
// signal and pass every role check; customers must match one of the listed
// roles literally. Must run after AuthnMiddleware.
func RequireRoles(roles ...string) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := principalFrom(r.Context())
			if !ok {
				authapi.ErrUnauthorized.WriteError(w)
				return
			}

			if principal.Kind != domain.KindEmployee && !slices.Contains(roles, principal.RoleSignal()) {
				authapi.ErrForbidden.WriteError(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}
