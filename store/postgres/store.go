// Package postgres implements store.Store on PostgreSQL via the grove ORM.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/recur"
	"github.com/xraph/recur/schedule"
	recurstore "github.com/xraph/recur/store"
	"github.com/xraph/recur/tenant"
)

// compile-time interface check
var _ recurstore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("recur/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("%w: postgres: %w", recur.ErrMigrationFailed, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Tenant Store ====================

func (s *Store) CreateTenant(ctx context.Context, t *tenant.Tenant) error {
	if _, err := s.GetTenant(ctx, t.AccountID); err == nil {
		return recur.ErrDuplicateTenant
	} else if !errors.Is(err, recur.ErrTenantNotFound) {
		return err
	}

	if _, err := s.pg.NewInsert(toTenantModel(t)).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return recur.ErrDuplicateTenant
		}
		return fmt.Errorf("recur/postgres: create tenant: %w", err)
	}
	return nil
}

func (s *Store) GetTenant(ctx context.Context, accountID string) (*tenant.Tenant, error) {
	m := new(tenantModel)
	err := s.pg.NewSelect(m).
		Where("account_id = $1", accountID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, recur.ErrTenantNotFound
		}
		return nil, err
	}
	return fromTenantModel(m), nil
}

// ==================== Schedule Store ====================

func (s *Store) CreateSchedule(ctx context.Context, sc *schedule.Schedule) error {
	if _, err := s.getScheduleModel(ctx, sc.ID); err == nil {
		return recur.ErrIdentifierCollision
	} else if !errors.Is(err, recur.ErrScheduleNotFound) {
		return err
	}

	if _, err := s.pg.NewInsert(toScheduleModel(sc)).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return recur.ErrIdentifierCollision
		}
		return fmt.Errorf("recur/postgres: create schedule: %w", err)
	}
	return nil
}

func (s *Store) GetSchedule(ctx context.Context, scheduleID string) (*schedule.Schedule, error) {
	m, err := s.getScheduleModel(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	return fromScheduleModel(m)
}

func (s *Store) getScheduleModel(ctx context.Context, scheduleID string) (*scheduleModel, error) {
	m := new(scheduleModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", scheduleID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, recur.ErrScheduleNotFound
		}
		return nil, err
	}
	return m, nil
}

// DecrementSchedule compares-and-swaps on the observed remaining count.
func (s *Store) DecrementSchedule(ctx context.Context, scheduleID string) (bool, error) {
	m, err := s.getScheduleModel(ctx, scheduleID)
	if err != nil {
		return false, err
	}
	sc, err := fromScheduleModel(m)
	if err != nil {
		return false, err
	}
	next, err := sc.RemainingCount.Dec()
	if err != nil {
		return false, err
	}

	if next.IsZero() {
		res, err := s.pg.NewDelete((*scheduleModel)(nil)).
			Where("id = $1", scheduleID).
			Where("remaining_count = $2", m.RemainingCount).
			Exec(ctx)
		if err != nil {
			return false, err
		}
		return false, casResult(res)
	}

	res, err := s.pg.NewUpdate((*scheduleModel)(nil)).
		Set("remaining_count = $1", next.String()).
		Set("updated_at = $2", now()).
		Where("id = $3", scheduleID).
		Where("remaining_count = $4", m.RemainingCount).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	if err := casResult(res); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) DeleteSchedule(ctx context.Context, scheduleID string) error {
	res, err := s.pg.NewDelete((*scheduleModel)(nil)).
		Where("id = $1", scheduleID).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return recur.ErrScheduleNotFound
	}
	return nil
}

func (s *Store) RestoreSchedule(ctx context.Context, sc *schedule.Schedule) error {
	m := toScheduleModel(sc)
	res, err := s.pg.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}
	if _, err := s.pg.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("recur/postgres: restore schedule: %w", err)
	}
	return nil
}

func (s *Store) ListSchedules(ctx context.Context, tenantID string, opts schedule.ListOpts) ([]*schedule.Schedule, error) {
	var models []scheduleModel
	q := s.pg.NewSelect(&models).Where("tenant_id = $1", tenantID)

	if opts.Recipient != "" {
		q = q.Where("recipient_account = $2", opts.Recipient)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at ASC, id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*schedule.Schedule, len(models))
	for i := range models {
		sc, err := fromScheduleModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = sc
	}
	return result, nil
}

// ==================== Helpers ====================

type rowsAffecter interface {
	RowsAffected() (int64, error)
}

// casResult maps a compare-and-swap that touched no rows to ErrConcurrentUpdate.
func casResult(res rowsAffecter) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return recur.ErrConcurrentUpdate
	}
	return nil
}

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a unique constraint failure. An
// insert can lose the race against a concurrent insert of the same key after
// the existence check passed.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLSTATE "+uniqueViolation) ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
