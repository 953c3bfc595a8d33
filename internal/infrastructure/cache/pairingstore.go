package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	pairingPrefix = "replygate:pairing:"

	// Pairing codes are short-lived by nature; keep them just long
	// enough for the HTTP layer to re-serve an in-flight challenge
	// instead of kicking off a second connect.
	pairingTTL = 60 * time.Second
)

// ErrPairingNotFound is returned when no live pairing code exists.
var ErrPairingNotFound = errors.New("no pairing code for tenant")

// PairingStore caches the most recent pairing challenge per tenant.
type PairingStore struct {
	client *redis.Client
}

func NewPairingStore(client *redis.Client) *PairingStore {
	return &PairingStore{client: client}
}

func (s *PairingStore) key(tenantSID string) string {
	return pairingPrefix + tenantSID
}

// Put stores the pairing code with its fixed TTL.
func (s *PairingStore) Put(ctx context.Context, tenantSID, code string) error {
	if err := s.client.Set(ctx, s.key(tenantSID), code, pairingTTL).Err(); err != nil {
		return fmt.Errorf("failed to store pairing code: %w", err)
	}
	return nil
}

// Get returns the live pairing code, or ErrPairingNotFound.
func (s *PairingStore) Get(ctx context.Context, tenantSID string) (string, error) {
	code, err := s.client.Get(ctx, s.key(tenantSID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrPairingNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read pairing code: %w", err)
	}
	return code, nil
}

// Clear drops the pairing code once the session opens.
func (s *PairingStore) Clear(ctx context.Context, tenantSID string) error {
	if err := s.client.Del(ctx, s.key(tenantSID)).Err(); err != nil {
		return fmt.Errorf("failed to clear pairing code: %w", err)
	}
	return nil
}
