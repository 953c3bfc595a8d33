package tenant

import "fmt"

// SubscriptionStatus is the billing-side lifecycle of a tenant.
type SubscriptionStatus string

const (
	SubscriptionTrial     SubscriptionStatus = "trial"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionExpired   SubscriptionStatus = "expired"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

var validSubscriptionStatuses = map[SubscriptionStatus]bool{
	SubscriptionTrial:     true,
	SubscriptionActive:    true,
	SubscriptionExpired:   true,
	SubscriptionCancelled: true,
}

// NewSubscriptionStatus validates and returns a subscription status.
func NewSubscriptionStatus(s string) (SubscriptionStatus, error) {
	status := SubscriptionStatus(s)
	if !validSubscriptionStatuses[status] {
		return "", fmt.Errorf("invalid subscription status: %q", s)
	}
	return status, nil
}

func (s SubscriptionStatus) String() string {
	return string(s)
}

// CanOperate reports whether the status permits automated responses and
// session reconnection.
func (s SubscriptionStatus) CanOperate() bool {
	return s == SubscriptionTrial || s == SubscriptionActive
}
