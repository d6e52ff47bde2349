package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrCredentialMissing indicates no bearer credential was presented.
	ErrCredentialMissing = errors.New("credential missing")
	// ErrCredentialInvalid indicates a malformed or expired credential.
	ErrCredentialInvalid = errors.New("credential invalid")
	// ErrIdentityInactive indicates the credential references a deactivated identity.
	ErrIdentityInactive = errors.New("identity deactivated")
)
