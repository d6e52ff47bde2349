package authz

import (
	"encoding/json"
	"fmt"
)

// Module identifies a resource category subject to access control.
type Module string

const (
	ModuleLeads           Module = "leads"
	ModuleProperties      Module = "properties"
	ModuleInquiries       Module = "inquiries"
	ModuleContactMessages Module = "contact_messages"
	ModuleUsers           Module = "users"
	ModuleAgencies        Module = "agencies"
	ModuleCMS             Module = "cms"
	ModuleSettings        Module = "settings"
	ModuleSubscriptions   Module = "subscriptions"
	ModuleTransactions    Module = "transactions"
)

// Modules lists the closed module set. Adding a module is a code change here,
// not a schema change.
func Modules() []Module {
	return []Module{
		ModuleLeads,
		ModuleProperties,
		ModuleInquiries,
		ModuleContactMessages,
		ModuleUsers,
		ModuleAgencies,
		ModuleCMS,
		ModuleSettings,
		ModuleSubscriptions,
		ModuleTransactions,
	}
}

// ParseModule validates a raw module key from storage or a request payload.
func ParseModule(raw string) (Module, error) {
	for _, m := range Modules() {
		if Module(raw) == m {
			return m, nil
		}
	}
	return "", fmt.Errorf("authz: unknown module %q", raw)
}

// Action is one of the four operations gated per module.
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

// Actions lists all gated actions.
func Actions() []Action {
	return []Action{ActionView, ActionCreate, ActionEdit, ActionDelete}
}

// ParseAction validates a raw action key.
func ParseAction(raw string) (Action, error) {
	switch Action(raw) {
	case ActionView, ActionCreate, ActionEdit, ActionDelete:
		return Action(raw), nil
	}
	return "", fmt.Errorf("authz: unknown action %q", raw)
}

// ActionSet holds the per-action grants for one module. A zero value denies
// every action.
type ActionSet struct {
	View   bool `json:"view"`
	Create bool `json:"create"`
	Edit   bool `json:"edit"`
	Delete bool `json:"delete"`
}

// Allows reports the grant stored for the given action.
func (s ActionSet) Allows(a Action) bool {
	switch a {
	case ActionView:
		return s.View
	case ActionCreate:
		return s.Create
	case ActionEdit:
		return s.Edit
	case ActionDelete:
		return s.Delete
	}
	return false
}

// AllActions is the fully-granted ActionSet.
func AllActions() ActionSet {
	return ActionSet{View: true, Create: true, Edit: true, Delete: true}
}

// Matrix maps modules to their action grants. A missing module key means no
// permission for any action on that module.
type Matrix map[Module]ActionSet

// AllowAll returns the synthetic matrix granting every action on every module.
// Used for the super_admin bypass; never read from storage.
func AllowAll() Matrix {
	m := make(Matrix, len(Modules()))
	for _, mod := range Modules() {
		m[mod] = AllActions()
	}
	return m
}

// Allows looks up one (module, action) cell. Absent module keys deny.
func (m Matrix) Allows(module Module, action Action) bool {
	set, ok := m[module]
	return ok && set.Allows(action)
}

// DecodeMatrix converts a stored JSON document into a Matrix. Unknown module
// or action keys are rejected at this boundary instead of passing through
// silently.
func DecodeMatrix(data []byte) (Matrix, error) {
	var raw map[string]map[string]bool
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("authz: decode matrix: %w", err)
	}
	matrix := make(Matrix, len(raw))
	for moduleKey, actions := range raw {
		module, err := ParseModule(moduleKey)
		if err != nil {
			return nil, err
		}
		var set ActionSet
		for actionKey, granted := range actions {
			action, err := ParseAction(actionKey)
			if err != nil {
				return nil, fmt.Errorf("authz: module %q: %w", moduleKey, err)
			}
			switch action {
			case ActionView:
				set.View = granted
			case ActionCreate:
				set.Create = granted
			case ActionEdit:
				set.Edit = granted
			case ActionDelete:
				set.Delete = granted
			}
		}
		matrix[module] = set
	}
	return matrix, nil
}

// EncodeMatrix serialises a Matrix for JSONB storage.
func EncodeMatrix(m Matrix) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("authz: encode matrix: %w", err)
	}
	return data, nil
}
