package schedule

import "context"

// Store persists schedules keyed by their derived identifier.
type Store interface {
	// CreateSchedule inserts s. An existing record with the same ID is never
	// overwritten.
	CreateSchedule(ctx context.Context, s *Schedule) error
	GetSchedule(ctx context.Context, scheduleID string) (*Schedule, error)

	// DecrementSchedule atomically reduces RemainingCount by one. When the
	// count reaches zero the record is deleted and remains is false.
	DecrementSchedule(ctx context.Context, scheduleID string) (remains bool, err error)
	DeleteSchedule(ctx context.Context, scheduleID string) error

	// RestoreSchedule writes back a previously observed record, replacing
	// whatever is stored under its ID.
	RestoreSchedule(ctx context.Context, s *Schedule) error
	// ListSchedules returns a tenant's schedules ordered by creation time.
	// An empty tenantID matches no schedules.
	ListSchedules(ctx context.Context, tenantID string, opts ListOpts) ([]*Schedule, error)
}

// ListOpts filters and paginates ListSchedules. A Limit of zero or less
// returns every remaining record; an Offset past the end yields an empty page.
type ListOpts struct {
	Recipient string
	Limit     int
	Offset    int
}
