package tenant

import "errors"

var (
	// ErrTenantNotFound is returned when no tenant matches the lookup key.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrIdentityTaken is returned when a network identity is already
	// registered to another tenant. Identities are globally unique.
	ErrIdentityTaken = errors.New("network identity already registered")

	// ErrNoIdentity is returned when a tenant would end up with no
	// network identity at all.
	ErrNoIdentity = errors.New("tenant requires at least one network identity")
)
