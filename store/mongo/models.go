package mongo

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/xraph/grove"

	"github.com/xraph/recur/schedule"
	"github.com/xraph/recur/tenant"
	"github.com/xraph/recur/types"
)

// ==================== Tenant models ====================

type tenantModel struct {
	grove.BaseModel `grove:"table:recur_tenants"`

	AccountID string    `grove:"account_id,pk" bson:"_id"`
	Email     string    `grove:"email"         bson:"email"`
	TenantID  string    `grove:"tenant_id"     bson:"tenant_id"`
	CreatedAt time.Time `grove:"created_at"    bson:"created_at"`
	UpdatedAt time.Time `grove:"updated_at"    bson:"updated_at"`
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

// BSON has no 128-bit integer; amounts are decimal strings.
type scheduleModel struct {
	grove.BaseModel `grove:"table:recur_schedules"`

	ID                  string    `grove:"id,pk"                 bson:"_id"`
	TenantID            string    `grove:"tenant_id"             bson:"tenant_id"`
	OwnerAccount        string    `grove:"owner_account"         bson:"owner_account"`
	AmountPerOccurrence string    `grove:"amount_per_occurrence" bson:"amount_per_occurrence"`
	RemainingCount      string    `grove:"remaining_count"       bson:"remaining_count"`
	InitialCount        string    `grove:"initial_count"         bson:"initial_count"`
	RecipientAccount    string    `grove:"recipient_account"     bson:"recipient_account"`
	RecipientEmail      string    `grove:"recipient_email"       bson:"recipient_email"`
	CreatedAt           time.Time `grove:"created_at"            bson:"created_at"`
	UpdatedAt           time.Time `grove:"updated_at"            bson:"updated_at"`
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
	amounts := make([]types.Amount, 3)
	for i, raw := range []string{m.AmountPerOccurrence, m.RemainingCount, m.InitialCount} {
		a, err := types.ParseAmount(raw)
		if err != nil {
			return nil, fmt.Errorf("recur/mongo: schedule %s: %w", m.ID, err)
		}
		amounts[i] = a
	}

	return &schedule.Schedule{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:                  m.ID,
		TenantID:            m.TenantID,
		OwnerAccount:        m.OwnerAccount,
		AmountPerOccurrence: amounts[0],
		RemainingCount:      amounts[1],
		InitialCount:        amounts[2],
		RecipientAccount:    m.RecipientAccount,
		RecipientEmail:      m.RecipientEmail,
	}, nil
}

// scheduleFields is the $set document used to upsert a schedule.
func scheduleFields(m *scheduleModel) bson.M {
	return bson.M{
		"_id":                   m.ID,
		"tenant_id":             m.TenantID,
		"owner_account":         m.OwnerAccount,
		"amount_per_occurrence": m.AmountPerOccurrence,
		"remaining_count":       m.RemainingCount,
		"initial_count":         m.InitialCount,
		"recipient_account":     m.RecipientAccount,
		"recipient_email":       m.RecipientEmail,
		"created_at":            m.CreatedAt,
		"updated_at":            m.UpdatedAt,
	}
}
