package authz

import (
	"context"
	"errors"
)

// Gate decides a single (module, action) cell for an actor. It is a pure
// decision function: no side effects beyond the returned Decision, and the
// answer cannot be influenced by request parameters.
type Gate struct {
	resolver *Resolver
}

// NewGate constructs a Gate around the resolver.
func NewGate(resolver *Resolver) *Gate {
	return &Gate{resolver: resolver}
}

// Check resolves the actor's matrix and answers one cell. A missing role
// default yields a deny with ReasonNoRolePermissions rather than an error so
// the condition stays distinguishable from an ordinary denial; store I/O
// failures are returned as errors.
func (g *Gate) Check(ctx context.Context, actor Actor, module Module, action Action) (Decision, error) {
	if !actor.Authenticated() {
		d := Denied(ReasonUnauthenticated)
		d.Context = DecisionContext{Module: module, Action: action}
		return d, nil
	}

	if actor.Role == RoleSuperAdmin {
		return Allowed(ReasonBypass), nil
	}

	matrix, err := g.resolver.Resolve(ctx, actor)
	if err != nil {
		if errors.Is(err, ErrNoRolePermissions) {
			d := Denied(ReasonNoRolePermissions)
			d.Context = DecisionContext{Module: module, Action: action}
			return d, nil
		}
		return Decision{}, err
	}

	set, present := matrix[module]
	granted := present && set.Allows(action)
	if granted {
		return Allowed(ReasonGranted), nil
	}
	d := Denied(ReasonInsufficientPermission)
	d.Context = DecisionContext{Module: module, Action: action, Granted: &granted}
	return d, nil
}
