// Package sqlite implements store.Store on SQLite via the grove ORM.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/recur"
	"github.com/xraph/recur/schedule"
	recurstore "github.com/xraph/recur/store"
	"github.com/xraph/recur/tenant"
)

// compile-time interface check
var _ recurstore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("recur/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("%w: sqlite: %w", recur.ErrMigrationFailed, err)
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

	if _, err := s.sdb.NewInsert(toTenantModel(t)).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return recur.ErrDuplicateTenant
		}
		return fmt.Errorf("recur/sqlite: create tenant: %w", err)
	}
	return nil
}

func (s *Store) GetTenant(ctx context.Context, accountID string) (*tenant.Tenant, error) {
	m := new(tenantModel)
	err := s.sdb.NewSelect(m).
		Where("account_id = ?", accountID).
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

	if _, err := s.sdb.NewInsert(toScheduleModel(sc)).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return recur.ErrIdentifierCollision
		}
		return fmt.Errorf("recur/sqlite: create schedule: %w", err)
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
	err := s.sdb.NewSelect(m).
		Where("id = ?", scheduleID).
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
		res, err := s.sdb.NewDelete((*scheduleModel)(nil)).
			Where("id = ?", scheduleID).
			Where("remaining_count = ?", m.RemainingCount).
			Exec(ctx)
		if err != nil {
			return false, err
		}
		return false, casResult(res)
	}

	res, err := s.sdb.NewUpdate((*scheduleModel)(nil)).
		Set("remaining_count = ?", next.String()).
		Set("updated_at = ?", now()).
		Where("id = ?", scheduleID).
		Where("remaining_count = ?", m.RemainingCount).
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
	res, err := s.sdb.NewDelete((*scheduleModel)(nil)).
		Where("id = ?", scheduleID).
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
	res, err := s.sdb.NewUpdate(m).WherePK().Exec(ctx)
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
	if _, err := s.sdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("recur/sqlite: restore schedule: %w", err)
	}
	return nil
}

func (s *Store) ListSchedules(ctx context.Context, tenantID string, opts schedule.ListOpts) ([]*schedule.Schedule, error) {
	var models []scheduleModel
	q := s.sdb.NewSelect(&models).Where("tenant_id = ?", tenantID)

	if opts.Recipient != "" {
		q = q.Where("recipient_account = ?", opts.Recipient)
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

// Extended result codes for primary key and unique index failures.
const (
	constraintPrimaryKey = 1555
	constraintUnique     = 2067
)

// isUniqueViolation reports whether err is a unique constraint failure. An
// insert can lose the race against a concurrent insert of the same key after
// the existence check passed.
func isUniqueViolation(err error) bool {
	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		switch coded.Code() {
		case constraintPrimaryKey, constraintUnique:
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
