// Package redis implements store.Store on Redis.
//
// Records are JSON documents under "<prefix>tenant:<account>" and
// "<prefix>schedule:<id>"; each tenant's schedule IDs are indexed in the set
// "<prefix>tenant-schedules:<tenantID>". Schedule mutations use WATCH/MULTI so
// a concurrent writer surfaces as recur.ErrConcurrentUpdate.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/recur"
	"github.com/xraph/recur/schedule"
	"github.com/xraph/recur/store"
	"github.com/xraph/recur/tenant"
)

// DefaultPrefix namespaces every key written by the store.
const DefaultPrefix = "recur:"

var _ store.Store = (*Store)(nil)

// Store implements store.Store using Redis.
type Store struct {
	rdb    goredis.UniversalClient
	prefix string
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix overrides DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// New creates a new Redis store over rdb.
func New(rdb goredis.UniversalClient, opts ...Option) *Store {
	s := &Store{rdb: rdb, prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Client returns the underlying Redis client.
func (s *Store) Client() goredis.UniversalClient { return s.rdb }

func (s *Store) tenantKey(account string) string { return s.prefix + "tenant:" + account }
func (s *Store) scheduleKey(id string) string     { return s.prefix + "schedule:" + id }
func (s *Store) indexKey(tenantID string) string  { return s.prefix + "tenant-schedules:" + tenantID }

// ==================== Tenant Store ====================

func (s *Store) CreateTenant(ctx context.Context, t *tenant.Tenant) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("recur/redis: encode tenant: %w", err)
	}
	ok, err := s.rdb.SetNX(ctx, s.tenantKey(t.AccountID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("recur/redis: create tenant: %w", err)
	}
	if !ok {
		return recur.ErrDuplicateTenant
	}
	return nil
}

func (s *Store) GetTenant(ctx context.Context, accountID string) (*tenant.Tenant, error) {
	data, err := s.rdb.Get(ctx, s.tenantKey(accountID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, recur.ErrTenantNotFound
		}
		return nil, fmt.Errorf("recur/redis: get tenant: %w", err)
	}
	var t tenant.Tenant
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("recur/redis: decode tenant: %w", err)
	}
	return &t, nil
}

// ==================== Schedule Store ====================

func (s *Store) CreateSchedule(ctx context.Context, sc *schedule.Schedule) error {
	data, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("recur/redis: encode schedule: %w", err)
	}
	key := s.scheduleKey(sc.ID)

	err = s.rdb.Watch(ctx, func(tx *goredis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return recur.ErrIdentifierCollision
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.SAdd(ctx, s.indexKey(sc.TenantID), sc.ID)
			return nil
		})
		return err
	}, key)
	return s.wrap("create schedule", err)
}

func (s *Store) GetSchedule(ctx context.Context, scheduleID string) (*schedule.Schedule, error) {
	return s.getSchedule(ctx, s.rdb, scheduleID)
}

func (s *Store) getSchedule(ctx context.Context, c getter, scheduleID string) (*schedule.Schedule, error) {
	data, err := c.Get(ctx, s.scheduleKey(scheduleID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, recur.ErrScheduleNotFound
		}
		return nil, fmt.Errorf("recur/redis: get schedule: %w", err)
	}
	return decodeSchedule(data)
}

func (s *Store) DecrementSchedule(ctx context.Context, scheduleID string) (bool, error) {
	key := s.scheduleKey(scheduleID)
	var remains bool

	err := s.rdb.Watch(ctx, func(tx *goredis.Tx) error {
		sc, err := s.getSchedule(ctx, tx, scheduleID)
		if err != nil {
			return err
		}
		next, err := sc.RemainingCount.Dec()
		if err != nil {
			return err
		}

		if next.IsZero() {
			remains = false
			_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
				pipe.Del(ctx, key)
				pipe.SRem(ctx, s.indexKey(sc.TenantID), sc.ID)
				return nil
			})
			return err
		}

		sc.RemainingCount = next
		sc.Touch()
		data, err := json.Marshal(sc)
		if err != nil {
			return err
		}
		remains = true
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return false, s.wrap("decrement schedule", err)
	}
	return remains, nil
}

func (s *Store) DeleteSchedule(ctx context.Context, scheduleID string) error {
	key := s.scheduleKey(scheduleID)
	err := s.rdb.Watch(ctx, func(tx *goredis.Tx) error {
		sc, err := s.getSchedule(ctx, tx, scheduleID)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.SRem(ctx, s.indexKey(sc.TenantID), sc.ID)
			return nil
		})
		return err
	}, key)
	return s.wrap("delete schedule", err)
}

func (s *Store) RestoreSchedule(ctx context.Context, sc *schedule.Schedule) error {
	data, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("recur/redis: encode schedule: %w", err)
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, s.scheduleKey(sc.ID), data, 0)
		pipe.SAdd(ctx, s.indexKey(sc.TenantID), sc.ID)
		return nil
	})
	return s.wrap("restore schedule", err)
}

func (s *Store) ListSchedules(ctx context.Context, tenantID string, opts schedule.ListOpts) ([]*schedule.Schedule, error) {
	ids, err := s.rdb.SMembers(ctx, s.indexKey(tenantID)).Result()
	if err != nil {
		return nil, fmt.Errorf("recur/redis: list schedule ids: %w", err)
	}
	if len(ids) == 0 {
		return []*schedule.Schedule{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.scheduleKey(id)
	}
	values, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("recur/redis: list schedules: %w", err)
	}

	result := make([]*schedule.Schedule, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		sc, err := decodeSchedule([]byte(raw))
		if err != nil {
			return nil, err
		}
		if opts.Recipient != "" && sc.RecipientAccount != opts.Recipient {
			continue
		}
		result = append(result, sc)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})

	start := min(max(opts.Offset, 0), len(result))
	end := len(result)
	if opts.Limit > 0 && opts.Limit < end-start {
		end = start + opts.Limit
	}
	return result[start:end], nil
}

// getter is satisfied by both the client and a WATCH transaction.
type getter interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
}

// ==================== Core ====================

// Migrate is a no-op; Redis needs no schema.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping checks Redis connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close closes the Redis client.
func (s *Store) Close() error {
	return s.rdb.Close()
}

func (s *Store) wrap(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, goredis.TxFailedErr):
		return recur.ErrConcurrentUpdate
	case errors.Is(err, recur.ErrScheduleNotFound),
		errors.Is(err, recur.ErrIdentifierCollision),
		errors.Is(err, recur.ErrArithmeticOverflow):
		return err
	default:
		return fmt.Errorf("recur/redis: %s: %w", op, err)
	}
}

func decodeSchedule(data []byte) (*schedule.Schedule, error) {
	var sc schedule.Schedule
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("recur/redis: decode schedule: %w", err)
	}
	return &sc, nil
}
