// Package schedule defines payment schedules and their lifecycle.
package schedule

import "github.com/xraph/recur/types"

// Schedule is a pre-funded plan of repeated transfers of a fixed amount to one
// recipient. A stored schedule always has RemainingCount >= 1; the record is
// deleted when the count reaches zero or the schedule is cancelled.
type Schedule struct {
	types.Entity
	ID                  string       `json:"id"`
	TenantID            string       `json:"tenant_id"`
	OwnerAccount        string       `json:"owner_account"`
	AmountPerOccurrence types.Amount `json:"amount_per_occurrence"`
	RemainingCount      types.Amount `json:"remaining_count"`
	InitialCount        types.Amount `json:"initial_count"`
	RecipientAccount    string       `json:"recipient_account"`
	RecipientEmail      string       `json:"recipient_email"`
}

// Committed returns the amount still owed by the schedule
// (AmountPerOccurrence * RemainingCount).
func (s *Schedule) Committed() (types.Amount, error) {
	return s.AmountPerOccurrence.CheckedMul(s.RemainingCount)
}

// Triggered returns how many occurrences have already been issued.
func (s *Schedule) Triggered() types.Amount {
	n, err := s.InitialCount.CheckedSub(s.RemainingCount)
	if err != nil {
		return types.Zero
	}
	return n
}

// Clone returns a copy of s.
func (s *Schedule) Clone() *Schedule {
	c := *s
	return &c
}
