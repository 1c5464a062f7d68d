package sqlite

import (
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/recur/schedule"
	"github.com/xraph/recur/tenant"
	"github.com/xraph/recur/types"
)

// ==================== Tenant models ====================

type tenantModel struct {
	grove.BaseModel `grove:"table:recur_tenants"`

	AccountID string    `grove:"account_id,pk"`
	Email     string    `grove:"email"`
	TenantID  string    `grove:"tenant_id"`
	CreatedAt time.Time `grove:"created_at"`
	UpdatedAt time.Time `grove:"updated_at"`
}

func toTenantModel(t *tenant.Tenant) *tenantModel {
	return &tenantModel{
		AccountID: t.AccountID,
		Email:     t.Email,
		TenantID:  t.TenantID,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func fromTenantModel(m *tenantModel) *tenant.Tenant {
	return &tenant.Tenant{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		AccountID: m.AccountID,
		Email:     m.Email,
		TenantID:  m.TenantID,
	}
}

// ==================== Schedule models ====================

// Amounts exceed every native SQL integer type and are stored as decimal text.
type scheduleModel struct {
	grove.BaseModel `grove:"table:recur_schedules"`

	ID                  string    `grove:"id,pk"`
	TenantID            string    `grove:"tenant_id"`
	OwnerAccount        string    `grove:"owner_account"`
	AmountPerOccurrence string    `grove:"amount_per_occurrence"`
	RemainingCount      string    `grove:"remaining_count"`
	InitialCount        string    `grove:"initial_count"`
	RecipientAccount    string    `grove:"recipient_account"`
	RecipientEmail      string    `grove:"recipient_email"`
	CreatedAt           time.Time `grove:"created_at"`
	UpdatedAt           time.Time `grove:"updated_at"`
}

func toScheduleModel(s *schedule.Schedule) *scheduleModel {
	return &scheduleModel{
		ID:                  s.ID,
		TenantID:            s.TenantID,
		OwnerAccount:        s.OwnerAccount,
		AmountPerOccurrence: s.AmountPerOccurrence.String(),
		RemainingCount:      s.RemainingCount.String(),
		InitialCount:        s.InitialCount.String(),
		RecipientAccount:    s.RecipientAccount,
		RecipientEmail:      s.RecipientEmail,
		CreatedAt:           s.CreatedAt,
		UpdatedAt:           s.UpdatedAt,
	}
}

func fromScheduleModel(m *scheduleModel) (*schedule.Schedule, error) {
	amount, err := types.ParseAmount(m.AmountPerOccurrence)
	if err != nil {
		return nil, fmt.Errorf("recur/sqlite: schedule %s amount: %w", m.ID, err)
	}
	remaining, err := types.ParseAmount(m.RemainingCount)
	if err != nil {
		return nil, fmt.Errorf("recur/sqlite: schedule %s remaining count: %w", m.ID, err)
	}
	initial, err := types.ParseAmount(m.InitialCount)
	if err != nil {
		return nil, fmt.Errorf("recur/sqlite: schedule %s initial count: %w", m.ID, err)
	}

	return &schedule.Schedule{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:                  m.ID,
		TenantID:            m.TenantID,
		OwnerAccount:        m.OwnerAccount,
		AmountPerOccurrence: amount,
		RemainingCount:      remaining,
		InitialCount:        initial,
		RecipientAccount:    m.RecipientAccount,
		RecipientEmail:      m.RecipientEmail,
	}, nil
}
