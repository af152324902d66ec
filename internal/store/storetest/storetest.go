// Package storetest opens throwaway stores backed by in-memory SQLite.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"bookshare/internal/changefeed"
	"bookshare/internal/store"
)

// Open returns a migrated store and the local feed it publishes to.
func Open(t testing.TB, opts ...store.Option) (*store.Store, *changefeed.Local) {
	t.Helper()
	st, feed, _ := OpenWithDB(t, opts...)
	return st, feed
}

// OpenWithDB is Open that also hands back the gorm handle, so tests can
// register callbacks that inject failures.
func OpenWithDB(t testing.TB, opts ...store.Option) (*store.Store, *changefeed.Local, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection keeps every session on the same in-memory database.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	feed := changefeed.NewLocal()
	st := store.New(db, feed, opts...)
	require.NoError(t, st.Migrate(context.Background()))

	t.Cleanup(func() {
		feed.Close()
		sqlDB.Close()
	})
	return st, feed, db
}

// FailUpdates makes every UPDATE against table fail with err.
func FailUpdates(t testing.TB, db *gorm.DB, table string, err error) {
	t.Helper()
	name := "storetest:fail_update_" + table
	require.NoError(t, db.Callback().Update().Before("gorm:update").Register(name, func(tx *gorm.DB) {
		if tx.Statement.Table == table {
			tx.AddError(err)
		}
	}))
}

// FailDeletes makes the next times DELETEs against table fail with err.
func FailDeletes(t testing.TB, db *gorm.DB, table string, times int, err error) {
	t.Helper()
	var mu sync.Mutex
	name := "storetest:fail_delete_" + table
	require.NoError(t, db.Callback().Delete().Before("gorm:delete").Register(name, func(tx *gorm.DB) {
		if tx.Statement.Table != table {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if times > 0 {
			times--
			tx.AddError(err)
		}
	}))
}

// Clock is a manually driven time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
