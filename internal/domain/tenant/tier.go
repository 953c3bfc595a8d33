package tenant

import "fmt"

// Tier is a tenant's quota tier. Tier and subscription status are
// independent axes: a cancelled tenant keeps reporting its tier while the
// subscription gate stops it from operating.
type Tier string

const (
	TierTrial        Tier = "trial"
	TierStarter      Tier = "starter"
	TierProfessional Tier = "professional"
	TierEnterprise   Tier = "enterprise"
)

// TierLimits are the message ceilings for one tier. A zero value means
// unlimited for that window.
type TierLimits struct {
	PerHour  int64
	PerDay   int64
	PerMonth int64
}

var tierLimits = map[Tier]TierLimits{
	TierTrial:        {PerHour: 20, PerDay: 100, PerMonth: 500},
	TierStarter:      {PerHour: 100, PerDay: 1000, PerMonth: 10000},
	TierProfessional: {PerHour: 500, PerDay: 5000, PerMonth: 50000},
	TierEnterprise:   {}, // unlimited across all windows
}

// NewTier validates and returns a tier value.
func NewTier(s string) (Tier, error) {
	t := Tier(s)
	if _, ok := tierLimits[t]; !ok {
		return "", fmt.Errorf("invalid tier: %q", s)
	}
	return t, nil
}

func (t Tier) String() string {
	return string(t)
}

// Limits returns the message ceilings for the tier.
func (t Tier) Limits() TierLimits {
	return tierLimits[t]
}
