package authz

import (
	"log/slog"
	"net/http"

	"github.com/havencrm/havencrm/internal/platform/httpx"
)

// DecisionObserver receives the outcome of every gate check, typically a
// metrics counter labelled by reason.
type DecisionObserver interface {
	ObserveDecision(reason string, allowed bool)
}

// Middleware wires the module gate into chi handler chains.
type Middleware struct {
	Gate     *Gate
	Logger   *slog.Logger
	Observer DecisionObserver
}

// Require guards a route group with one (module, action) cell. Unauthenticated
// requests get 401; every deny including the missing-seed-data case gets 403
// with the decision reason and context echoed in the body.
func (m Middleware) Require(module Module, action Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, _ := ActorFromContext(r.Context())
			decision, err := m.Gate.Check(r.Context(), actor, module, action)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("module gate check", slog.Any("error", err),
						slog.String("module", string(module)), slog.String("action", string(action)))
				}
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			m.observe(decision)
			if decision.Allow {
				next.ServeHTTP(w, r)
				return
			}
			m.respondDeny(w, decision)
		})
	}
}

// RequireSuperAdmin guards routes reserved for the privileged bypass role,
// such as editing the permission records themselves.
func (m Middleware) RequireSuperAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ActorFromContext(r.Context())
		if !actor.Authenticated() {
			d := Denied(ReasonUnauthenticated)
			m.observe(d)
			m.respondDeny(w, d)
			return
		}
		if actor.Role != RoleSuperAdmin {
			d := Denied(ReasonInsufficientPermission)
			m.observe(d)
			m.respondDeny(w, d)
			return
		}
		m.observe(Allowed(ReasonBypass))
		next.ServeHTTP(w, r)
	})
}

func (m Middleware) respondDeny(w http.ResponseWriter, decision Decision) {
	status := http.StatusForbidden
	if decision.Reason == ReasonUnauthenticated {
		status = http.StatusUnauthorized
	}
	httpx.Deny(w, status, string(decision.Reason), decision.Context)
}

func (m Middleware) observe(decision Decision) {
	if m.Observer != nil {
		m.Observer.ObserveDecision(string(decision.Reason), decision.Allow)
	}
}
