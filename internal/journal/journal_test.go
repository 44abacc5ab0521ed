package journal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	assert.NoError(t, err)
	return db
}

func testScope() Scope {
	return Scope{Venue: "binance", MarketType: "futures", Network: "mainnet"}
}

func TestAppendListRemove(t *testing.T) {
	j, err := New(testDB(t), testScope())
	assert.NoError(t, err)
	ctx := context.Background()

	assert.NoError(t, j.Append(ctx, "ETH/USDT", "active", "1", map[string]any{"status": "NEW"}))
	assert.NoError(t, j.Append(ctx, "BTC/USDT", "conditional", "2", nil))

	entries, err := j.ListOpen(ctx)
	assert.NoError(t, err)
	if assert.Len(t, entries, 2) {
		assert.Equal(t, "1", entries[0].OrderID)
		assert.Equal(t, "ETH/USDT", entries[0].Symbol)
		assert.Equal(t, "active", entries[0].OrderingKind)
		assert.NotEmpty(t, entries[0].Snapshot)
		assert.Equal(t, "conditional", entries[1].OrderingKind)
	}

	assert.NoError(t, j.Remove(ctx, "1"))
	entries, err = j.ListOpen(ctx)
	assert.NoError(t, err)
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "2", entries[0].OrderID)
	}
}

func TestAppendSameOrderUpserts(t *testing.T) {
	j, err := New(testDB(t), testScope())
	assert.NoError(t, err)
	ctx := context.Background()

	assert.NoError(t, j.Append(ctx, "ETH/USDT", "active", "1", nil))
	assert.NoError(t, j.Append(ctx, "ETH/USDT", "active", "1", map[string]any{"status": "NEW"}))

	entries, err := j.ListOpen(ctx)
	assert.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRemoveAbsentIsNoError(t *testing.T) {
	j, err := New(testDB(t), testScope())
	assert.NoError(t, err)
	assert.NoError(t, j.Remove(context.Background(), "missing"))
}

func TestListOpenFiltersScope(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	mainnet, err := New(db, testScope())
	assert.NoError(t, err)
	testnet, err := New(db, Scope{Venue: "binance", MarketType: "futures", Network: "testnet"})
	assert.NoError(t, err)

	assert.NoError(t, mainnet.Append(ctx, "ETH/USDT", "active", "1", nil))
	assert.NoError(t, testnet.Append(ctx, "ETH/USDT", "active", "2", nil))

	entries, err := mainnet.ListOpen(ctx)
	assert.NoError(t, err)
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "1", entries[0].OrderID)
	}
}

func TestAppendRequiresOrderID(t *testing.T) {
	j, err := New(testDB(t), testScope())
	assert.NoError(t, err)
	assert.Error(t, j.Append(context.Background(), "ETH/USDT", "active", "", nil))
}
