// Package mongo implements store.Store on MongoDB via the grove ORM.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/recur"
	"github.com/xraph/recur/schedule"
	recurstore "github.com/xraph/recur/store"
	"github.com/xraph/recur/tenant"
)

// Collection name constants.
const (
	colTenants   = "recur_tenants"
	colSchedules = "recur_schedules"
)

// compile-time interface check
var _ recurstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all recur collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}
		if _, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("%w: mongo %s indexes: %w", recur.ErrMigrationFailed, col, err)
		}
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
	_, err := s.mdb.NewInsert(toTenantModel(t)).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return recur.ErrDuplicateTenant
		}
		return fmt.Errorf("recur/mongo: create tenant: %w", err)
	}
	return nil
}

func (s *Store) GetTenant(ctx context.Context, accountID string) (*tenant.Tenant, error) {
	var m tenantModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": accountID}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, recur.ErrTenantNotFound
		}
		return nil, fmt.Errorf("recur/mongo: get tenant: %w", err)
	}
	return fromTenantModel(&m), nil
}

// ==================== Schedule Store ====================

func (s *Store) CreateSchedule(ctx context.Context, sc *schedule.Schedule) error {
	_, err := s.mdb.NewInsert(toScheduleModel(sc)).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return recur.ErrIdentifierCollision
		}
		return fmt.Errorf("recur/mongo: create schedule: %w", err)
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
	var m scheduleModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": scheduleID}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, recur.ErrScheduleNotFound
		}
		return nil, fmt.Errorf("recur/mongo: get schedule: %w", err)
	}
	return &m, nil
}

// DecrementSchedule filters on the observed remaining count so a concurrent
// writer matches nothing.
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

	filter := bson.M{"_id": scheduleID, "remaining_count": m.RemainingCount}

	if next.IsZero() {
		res, err := s.mdb.NewDelete((*scheduleModel)(nil)).
			Filter(filter).
			Exec(ctx)
		if err != nil {
			return false, fmt.Errorf("recur/mongo: exhaust schedule: %w", err)
		}
		if res.DeletedCount() == 0 {
			return false, recur.ErrConcurrentUpdate
		}
		return false, nil
	}

	res, err := s.mdb.NewUpdate((*scheduleModel)(nil)).
		Filter(filter).
		Set("remaining_count", next.String()).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("recur/mongo: decrement schedule: %w", err)
	}
	if res.MatchedCount() == 0 {
		return false, recur.ErrConcurrentUpdate
	}
	return true, nil
}

func (s *Store) DeleteSchedule(ctx context.Context, scheduleID string) error {
	res, err := s.mdb.NewDelete((*scheduleModel)(nil)).
		Filter(bson.M{"_id": scheduleID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("recur/mongo: delete schedule: %w", err)
	}
	if res.DeletedCount() == 0 {
		return recur.ErrScheduleNotFound
	}
	return nil
}

func (s *Store) RestoreSchedule(ctx context.Context, sc *schedule.Schedule) error {
	m := toScheduleModel(sc)
	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		SetUpdate(bson.M{"$set": scheduleFields(m)}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("recur/mongo: restore schedule: %w", err)
	}
	return nil
}

func (s *Store) ListSchedules(ctx context.Context, tenantID string, opts schedule.ListOpts) ([]*schedule.Schedule, error) {
	var models []scheduleModel

	filter := bson.M{"tenant_id": tenantID}
	if opts.Recipient != "" {
		filter["recipient_account"] = opts.Recipient
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("recur/mongo: list schedules: %w", err)
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

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all recur collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colTenants: {
			{
				Keys:    bson.D{{Key: "tenant_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colSchedules: {
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "recipient_account", Value: 1}}},
		},
	}
}
