package tenant

import "context"

// Repository is the durable tenant store. Implementations must enforce
// global identity uniqueness at write time and surface collisions as
// ErrIdentityTaken.
type Repository interface {
	Create(ctx context.Context, t *Tenant) error
	GetByID(ctx context.Context, id uint) (*Tenant, error)
	GetBySID(ctx context.Context, sid string) (*Tenant, error)
	GetByIdentity(ctx context.Context, identity string) (*Tenant, error)
	Update(ctx context.Context, t *Tenant) error

	// ListOperable returns tenants whose subscription allows sessions
	// (trial or active). Used by startup reconnection.
	ListOperable(ctx context.Context) ([]*Tenant, error)
}
