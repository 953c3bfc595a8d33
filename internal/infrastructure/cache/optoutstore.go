package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const optOutPrefix = "replygate:optout:"

// OptOutStore tracks senders who texted STOP to a tenant. Membership is a
// redis set per tenant so every gateway instance sees the same opt-outs.
type OptOutStore struct {
	client *redis.Client
}

func NewOptOutStore(client *redis.Client) *OptOutStore {
	return &OptOutStore{client: client}
}

func (s *OptOutStore) key(tenantID uint) string {
	return fmt.Sprintf("%s%d", optOutPrefix, tenantID)
}

// OptOut records the sender's STOP request.
func (s *OptOutStore) OptOut(ctx context.Context, tenantID uint, sender string) error {
	if err := s.client.SAdd(ctx, s.key(tenantID), sender).Err(); err != nil {
		return fmt.Errorf("failed to record opt-out: %w", err)
	}
	return nil
}

// OptIn removes the sender's opt-out after a START request.
func (s *OptOutStore) OptIn(ctx context.Context, tenantID uint, sender string) error {
	if err := s.client.SRem(ctx, s.key(tenantID), sender).Err(); err != nil {
		return fmt.Errorf("failed to remove opt-out: %w", err)
	}
	return nil
}

// IsOptedOut reports whether the sender asked this tenant for silence.
func (s *OptOutStore) IsOptedOut(ctx context.Context, tenantID uint, sender string) (bool, error) {
	member, err := s.client.SIsMember(ctx, s.key(tenantID), sender).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check opt-out: %w", err)
	}
	return member, nil
}
