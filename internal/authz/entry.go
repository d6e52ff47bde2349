package authz

import (
	"encoding/json"
	"fmt"
)

// EntryOverride is the three-valued per-document override for one action.
// The zero value is Inherit: the module-level decision stands. Encoding the
// third state explicitly avoids confusing "key never set" with "set to false".
type EntryOverride uint8

const (
	EntryInherit EntryOverride = iota
	EntryAllow
	EntryDeny
)

func (o EntryOverride) String() string {
	switch o {
	case EntryAllow:
		return "allow"
	case EntryDeny:
		return "deny"
	}
	return "inherit"
}

// ParseEntryOverride reads the stored string form. Absent keys decode to
// EntryInherit at the EntryPermissions level, so only "allow" and "deny" are
// valid here.
func ParseEntryOverride(raw string) (EntryOverride, error) {
	switch raw {
	case "allow":
		return EntryAllow, nil
	case "deny":
		return EntryDeny, nil
	}
	return EntryInherit, fmt.Errorf("authz: unknown entry override %q", raw)
}

// EntryActionSet holds the per-action overrides for one role on one document.
type EntryActionSet struct {
	View   EntryOverride
	Create EntryOverride
	Edit   EntryOverride
	Delete EntryOverride
}

// Get returns the override stored for the given action.
func (s EntryActionSet) Get(a Action) EntryOverride {
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
	return EntryInherit
}

func (s *EntryActionSet) set(a Action, o EntryOverride) {
	switch a {
	case ActionView:
		s.View = o
	case ActionCreate:
		s.Create = o
	case ActionEdit:
		s.Edit = o
	case ActionDelete:
		s.Delete = o
	}
}

// EntryPermissions maps roles to their per-document overrides. Roles missing
// from the map inherit the module-level decision for every action.
type EntryPermissions map[Role]EntryActionSet

// DecodeEntryPermissions parses the stored JSON form, e.g.
// {"agent":{"delete":"deny"}}. Unknown roles, actions, or override values are
// rejected at this boundary.
func DecodeEntryPermissions(data []byte) (EntryPermissions, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var raw map[string]map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("authz: decode entry permissions: %w", err)
	}
	perms := make(EntryPermissions, len(raw))
	for roleKey, actions := range raw {
		role, err := ParseRole(roleKey)
		if err != nil {
			return nil, err
		}
		var set EntryActionSet
		for actionKey, value := range actions {
			action, err := ParseAction(actionKey)
			if err != nil {
				return nil, fmt.Errorf("authz: role %q: %w", roleKey, err)
			}
			override, err := ParseEntryOverride(value)
			if err != nil {
				return nil, fmt.Errorf("authz: role %q action %q: %w", roleKey, actionKey, err)
			}
			set.set(action, override)
		}
		perms[role] = set
	}
	return perms, nil
}

// EncodeEntryPermissions serialises overrides for JSONB storage. Inherit
// entries are omitted so the stored form only records explicit decisions.
func EncodeEntryPermissions(perms EntryPermissions) ([]byte, error) {
	raw := make(map[string]map[string]string, len(perms))
	for role, set := range perms {
		actions := make(map[string]string)
		for _, action := range Actions() {
			if o := set.Get(action); o != EntryInherit {
				actions[string(action)] = o.String()
			}
		}
		if len(actions) > 0 {
			raw[string(role)] = actions
		}
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("authz: encode entry permissions: %w", err)
	}
	return data, nil
}

// EntryProtected is implemented by documents carrying per-document overrides.
type EntryProtected interface {
	EntryOverrides() EntryPermissions
}

// EvaluateEntry applies a document's per-role override to an action the
// module gate has already allowed. It tightens or loosens that decision; it
// never authorizes independently, so it must only run after a gate allow.
func EvaluateEntry(doc EntryProtected, actor Actor, action Action) Decision {
	if actor.Role == RoleSuperAdmin {
		return Allowed(ReasonSuperAdminBypass)
	}
	perms := doc.EntryOverrides()
	set, ok := perms[actor.Role]
	if !ok {
		return Allowed(ReasonModulePermissionPassed)
	}
	switch set.Get(action) {
	case EntryDeny:
		d := Denied(ReasonEntryExplicitDeny)
		d.Context = DecisionContext{Action: action}
		return d
	case EntryAllow:
		return Allowed(ReasonEntryExplicitAllow)
	}
	return Allowed(ReasonModulePermissionPassed)
}
