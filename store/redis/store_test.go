package redis_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/recur/store"
	recurredis "github.com/xraph/recur/store/redis"
	"github.com/xraph/recur/store/storetest"
)

func newStore(t *testing.T) (*recurredis.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	s := recurredis.New(client)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, _ := newStore(t)
		return s
	})
}

func TestKeyLayout(t *testing.T) {
	ctx := context.Background()
	s, mr := newStore(t)

	require.NoError(t, s.CreateSchedule(ctx, storetest.NewSchedule("alice_1", "alice_0", 2)))
	assert.True(t, mr.Exists("recur:schedule:alice_1"))

	members, err := mr.Members("recur:tenant-schedules:alice_0")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice_1"}, members)

	_, err = s.DecrementSchedule(ctx, "alice_1")
	require.NoError(t, err)
	_, err = s.DecrementSchedule(ctx, "alice_1")
	require.NoError(t, err)

	assert.False(t, mr.Exists("recur:schedule:alice_1"))
	assert.False(t, mr.Exists("recur:tenant-schedules:alice_0"), "empty index set is removed")
}

func TestCustomPrefix(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	s := recurredis.New(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), recurredis.WithPrefix("test:"))

	require.NoError(t, s.CreateSchedule(ctx, storetest.NewSchedule("alice_1", "alice_0", 1)))
	assert.True(t, mr.Exists("test:schedule:alice_1"))
}

func TestPing(t *testing.T) {
	s, mr := newStore(t)
	require.NoError(t, s.Ping(context.Background()))

	mr.Close()
	assert.Error(t, s.Ping(context.Background()))
}
