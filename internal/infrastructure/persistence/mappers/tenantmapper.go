package mappers

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/replygate/replygate/internal/domain/responder"
	"github.com/replygate/replygate/internal/domain/tenant"
	"github.com/replygate/replygate/internal/infrastructure/persistence/models"
)

// TenantMapper handles the conversion between Tenant domain entities and
// persistence models.
type TenantMapper interface {
	// ToModel converts a tenant domain entity to a persistence model.
	// Identities are persisted as separate rows and returned alongside.
	ToModel(t *tenant.Tenant) (*models.TenantModel, []*models.TenantIdentityModel, error)

	// ToDomain converts a tenant persistence model plus its identity rows
	// to a domain entity.
	ToDomain(model *models.TenantModel, identities []*models.TenantIdentityModel) (*tenant.Tenant, error)
}

type TenantMapperImpl struct{}

func NewTenantMapper() TenantMapper {
	return &TenantMapperImpl{}
}

func (m *TenantMapperImpl) ToModel(t *tenant.Tenant) (*models.TenantModel, []*models.TenantIdentityModel, error) {
	hours := t.Hours()

	closedDays, err := json.Marshal(hours.ClosedDays)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal closed days: %w", err)
	}
	entries, err := json.Marshal(t.Entries())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal responder entries: %w", err)
	}
	operators, err := json.Marshal(t.Operators())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal operators: %w", err)
	}

	model := &models.TenantModel{
		ID:              t.ID(),
		SID:             t.SID(),
		Name:            t.Name(),
		Tier:            string(t.Tier()),
		Subscription:    string(t.Subscription()),
		TrialEndsAt:     t.TrialEndsAt(),
		PeriodEndsAt:    t.PeriodEndsAt(),
		StartHour:       hours.StartHour,
		EndHour:         hours.EndHour,
		Timezone:        hours.Timezone,
		ClosedDays:      datatypes.JSON(closedDays),
		FallbackMessage: t.FallbackMessage(),
		Entries:         datatypes.JSON(entries),
		Operators:       datatypes.JSON(operators),
		CreatedAt:       t.CreatedAt(),
		UpdatedAt:       t.UpdatedAt(),
	}

	identityModels := make([]*models.TenantIdentityModel, 0, len(t.Identities()))
	for i, identity := range t.Identities() {
		identityModels = append(identityModels, &models.TenantIdentityModel{
			TenantID: t.ID(),
			Identity: identity,
			Position: i,
		})
	}

	return model, identityModels, nil
}

func (m *TenantMapperImpl) ToDomain(model *models.TenantModel, identities []*models.TenantIdentityModel) (*tenant.Tenant, error) {
	var closedDays []time.Weekday
	if len(model.ClosedDays) > 0 {
		if err := json.Unmarshal(model.ClosedDays, &closedDays); err != nil {
			return nil, fmt.Errorf("failed to unmarshal closed days (id=%d): %w", model.ID, err)
		}
	}

	var entries []responder.Entry
	if len(model.Entries) > 0 {
		if err := json.Unmarshal(model.Entries, &entries); err != nil {
			return nil, fmt.Errorf("failed to unmarshal responder entries (id=%d): %w", model.ID, err)
		}
	}

	var operators []string
	if len(model.Operators) > 0 {
		if err := json.Unmarshal(model.Operators, &operators); err != nil {
			return nil, fmt.Errorf("failed to unmarshal operators (id=%d): %w", model.ID, err)
		}
	}

	idents := make([]string, len(identities))
	for _, row := range identities {
		if row.Position >= 0 && row.Position < len(identities) {
			idents[row.Position] = row.Identity
		}
	}

	hours := tenant.OperatingHours{
		StartHour:  model.StartHour,
		EndHour:    model.EndHour,
		Timezone:   model.Timezone,
		ClosedDays: closedDays,
	}

	return tenant.ReconstructTenant(
		model.ID,
		model.SID,
		model.Name,
		idents,
		tenant.Tier(model.Tier),
		tenant.SubscriptionStatus(model.Subscription),
		model.TrialEndsAt,
		model.PeriodEndsAt,
		hours,
		model.FallbackMessage,
		entries,
		operators,
		model.CreatedAt,
		model.UpdatedAt,
	)
}
