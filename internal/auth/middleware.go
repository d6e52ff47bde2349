package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/havencrm/havencrm/internal/authz"
	"github.com/havencrm/havencrm/internal/platform/httpx"
	"github.com/havencrm/havencrm/internal/shared"
)

// Middleware resolves the bearer credential on every request and stores the
// resulting Actor in context.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// Authenticate rejects requests without a valid credential with 401. Gate
// checks further in still see only the Actor, never the credential.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		credential := bearerToken(r)
		actor, err := m.Service.ResolveActor(r.Context(), credential)
		if err != nil {
			switch {
			case errors.Is(err, shared.ErrCredentialMissing),
				errors.Is(err, shared.ErrCredentialInvalid),
				errors.Is(err, shared.ErrIdentityInactive):
				httpx.Deny(w, http.StatusUnauthorized, string(authz.ReasonUnauthenticated), nil)
			default:
				if m.Logger != nil {
					m.Logger.Error("resolve actor", slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			}
			return
		}
		ctx := authz.ContextWithActor(r.Context(), actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}
