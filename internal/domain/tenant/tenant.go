package tenant

import (
	"fmt"
	"time"

	"github.com/replygate/replygate/internal/domain/responder"
	"github.com/replygate/replygate/internal/shared/id"
)

// Tenant is the aggregate root for one business account: its network
// identities, quota tier, subscription state, responder configuration,
// and operator identity set.
type Tenant struct {
	id              uint
	sid             string
	name            string
	identities      []string
	tier            Tier
	subscription    SubscriptionStatus
	trialEndsAt     *time.Time
	periodEndsAt    *time.Time
	hours           OperatingHours
	fallbackMessage string
	entries         []responder.Entry
	operators       []string
	createdAt       time.Time
	updatedAt       time.Time
}

// NewTenant creates a trial tenant with one network identity.
func NewTenant(name, identity, timezone string, trialEndsAt time.Time) (*Tenant, error) {
	if name == "" {
		return nil, fmt.Errorf("tenant name is required")
	}
	normalized, err := NormalizeIdentity(identity)
	if err != nil {
		return nil, err
	}
	hours := DefaultOperatingHours(timezone)
	if err := hours.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Tenant{
		sid:          id.MustGenerateWithPrefix(id.PrefixTenant, id.DefaultLength),
		name:         name,
		identities:   []string{normalized},
		tier:         TierTrial,
		subscription: SubscriptionTrial,
		trialEndsAt:  &trialEndsAt,
		hours:        hours,
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

// ReconstructTenant rebuilds a tenant from persistence.
func ReconstructTenant(
	tenantID uint,
	sid, name string,
	identities []string,
	tier Tier,
	subscription SubscriptionStatus,
	trialEndsAt, periodEndsAt *time.Time,
	hours OperatingHours,
	fallbackMessage string,
	entries []responder.Entry,
	operators []string,
	createdAt, updatedAt time.Time,
) (*Tenant, error) {
	if tenantID == 0 {
		return nil, fmt.Errorf("tenant ID cannot be zero")
	}
	if len(identities) == 0 {
		return nil, ErrNoIdentity
	}
	if _, ok := tierLimits[tier]; !ok {
		return nil, fmt.Errorf("invalid tier: %q", tier)
	}
	if !validSubscriptionStatuses[subscription] {
		return nil, fmt.Errorf("invalid subscription status: %q", subscription)
	}

	return &Tenant{
		id:              tenantID,
		sid:             sid,
		name:            name,
		identities:      identities,
		tier:            tier,
		subscription:    subscription,
		trialEndsAt:     trialEndsAt,
		periodEndsAt:    periodEndsAt,
		hours:           hours,
		fallbackMessage: fallbackMessage,
		entries:         entries,
		operators:       operators,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}, nil
}

func (t *Tenant) ID() uint                         { return t.id }
func (t *Tenant) SID() string                      { return t.sid }
func (t *Tenant) Name() string                     { return t.name }
func (t *Tenant) Identities() []string             { return t.identities }
func (t *Tenant) Tier() Tier                       { return t.tier }
func (t *Tenant) Subscription() SubscriptionStatus { return t.subscription }
func (t *Tenant) TrialEndsAt() *time.Time          { return t.trialEndsAt }
func (t *Tenant) PeriodEndsAt() *time.Time         { return t.periodEndsAt }
func (t *Tenant) Hours() OperatingHours            { return t.hours }
func (t *Tenant) FallbackMessage() string          { return t.fallbackMessage }
func (t *Tenant) Entries() []responder.Entry       { return t.entries }
func (t *Tenant) Operators() []string              { return t.operators }
func (t *Tenant) CreatedAt() time.Time             { return t.createdAt }
func (t *Tenant) UpdatedAt() time.Time             { return t.updatedAt }

// SetID assigns the persistence identifier after the initial insert.
func (t *Tenant) SetID(tenantID uint) error {
	if t.id != 0 {
		return fmt.Errorf("tenant ID already set")
	}
	if tenantID == 0 {
		return fmt.Errorf("tenant ID cannot be zero")
	}
	t.id = tenantID
	return nil
}

// PrimaryIdentity is the identity a session probe targets.
func (t *Tenant) PrimaryIdentity() string {
	return t.identities[0]
}

// AddIdentity registers another network identity on this tenant. Global
// uniqueness across tenants is the repository's concern at write time.
func (t *Tenant) AddIdentity(identity string) error {
	normalized, err := NormalizeIdentity(identity)
	if err != nil {
		return err
	}
	for _, existing := range t.identities {
		if existing == normalized {
			return ErrIdentityTaken
		}
	}
	t.identities = append(t.identities, normalized)
	t.touch()
	return nil
}

// IsOperator reports whether the sender is authorized for privileged
// in-band commands.
func (t *Tenant) IsOperator(sender string) bool {
	normalized, err := NormalizeIdentity(sender)
	if err != nil {
		return false
	}
	for _, op := range t.operators {
		if op == normalized {
			return true
		}
	}
	return false
}

// SetOperators replaces the operator identity set.
func (t *Tenant) SetOperators(operators []string) error {
	normalized := make([]string, 0, len(operators))
	for _, op := range operators {
		n, err := NormalizeIdentity(op)
		if err != nil {
			return err
		}
		normalized = append(normalized, n)
	}
	t.operators = normalized
	t.touch()
	return nil
}

// TrialExpired reports whether a trial tenant is past its end timestamp.
func (t *Tenant) TrialExpired(now time.Time) bool {
	return t.subscription == SubscriptionTrial &&
		t.trialEndsAt != nil &&
		now.After(*t.trialEndsAt)
}

// ExpireSubscription moves the tenant to expired. Idempotent.
func (t *Tenant) ExpireSubscription() {
	if t.subscription == SubscriptionExpired {
		return
	}
	t.subscription = SubscriptionExpired
	t.touch()
}

// ActivateSubscription is called by the billing collaborator after a
// successful charge: the tenant becomes active on the given tier until
// the period end.
func (t *Tenant) ActivateSubscription(tier Tier, periodEndsAt time.Time) error {
	if _, ok := tierLimits[tier]; !ok {
		return fmt.Errorf("invalid tier: %q", tier)
	}
	t.tier = tier
	t.subscription = SubscriptionActive
	t.periodEndsAt = &periodEndsAt
	t.touch()
	return nil
}

// CancelSubscription soft-disables the tenant. The tier is kept so the
// account still reports it; the gate stops it from operating.
func (t *Tenant) CancelSubscription() {
	t.subscription = SubscriptionCancelled
	t.touch()
}

// UpdateResponderEntries replaces the ordered responder list.
func (t *Tenant) UpdateResponderEntries(entries []responder.Entry) error {
	for i, e := range entries {
		if len(e.Keywords) == 0 {
			return fmt.Errorf("entry %d has no keywords", i)
		}
		if e.Reply == "" {
			return fmt.Errorf("entry %d has no reply", i)
		}
	}
	t.entries = entries
	t.touch()
	return nil
}

// UpdateHours replaces the operating-hours window.
func (t *Tenant) UpdateHours(hours OperatingHours) error {
	if err := hours.Validate(); err != nil {
		return err
	}
	t.hours = hours
	t.touch()
	return nil
}

// UpdateFallbackMessage sets the text sent outside operating hours and
// when no responder entry matches.
func (t *Tenant) UpdateFallbackMessage(msg string) {
	t.fallbackMessage = msg
	t.touch()
}

func (t *Tenant) touch() {
	t.updatedAt = time.Now().UTC()
}
