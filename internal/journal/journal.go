// Package journal persists which orders are in flight so a restarted
// process can re-attach to them. One row per open order, appended on
// submission and removed on terminal state.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Scope keys the journal rows of one account context.
type Scope struct {
	Venue      string
	MarketType string
	Network    string
}

// Entry is one in-flight order row.
type Entry struct {
	ID           uint   `gorm:"primaryKey"`
	Venue        string `gorm:"index:idx_journal_scope"`
	MarketType   string `gorm:"index:idx_journal_scope"`
	Network      string `gorm:"index:idx_journal_scope"`
	Symbol       string `gorm:"index:idx_journal_scope"`
	OrderingKind string
	OrderID      string `gorm:"uniqueIndex:idx_journal_order"`
	// Snapshot keeps the raw payload at submission for debugging a
	// crashed run.
	Snapshot  datatypes.JSON
	CreatedAt time.Time
}

func (Entry) TableName() string { return "open_orders" }

// Journal is the sqlite-backed append/remove log.
type Journal struct {
	db    *gorm.DB
	scope Scope
}

// Open creates or opens the journal database at path.
func Open(path string, scope Scope) (*Journal, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("journal path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	return New(db, scope)
}

// New wraps an existing gorm handle (tests use in-memory sqlite).
func New(db *gorm.DB, scope Scope) (*Journal, error) {
	if db == nil {
		return nil, fmt.Errorf("journal db cannot be nil")
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(2)
		sqlDB.SetMaxIdleConns(2)
	}
	return &Journal{db: db, scope: scope}, nil
}

// Append records an in-flight order. Re-appending the same order id
// updates the row instead of duplicating it.
func (j *Journal) Append(ctx context.Context, symbolID, kind, orderID string, raw map[string]any) error {
	if orderID == "" {
		return fmt.Errorf("journal: order id cannot be empty")
	}
	var snapshot datatypes.JSON
	if raw != nil {
		buf, err := json.Marshal(raw)
		if err == nil {
			snapshot = buf
		}
	}
	entry := Entry{
		Venue:        j.scope.Venue,
		MarketType:   j.scope.MarketType,
		Network:      j.scope.Network,
		Symbol:       symbolID,
		OrderingKind: kind,
		OrderID:      orderID,
		Snapshot:     snapshot,
		CreatedAt:    time.Now(),
	}
	return j.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Assign(entry).
		FirstOrCreate(&Entry{}).Error
}

// Remove deletes the row on terminal state. Removing an absent id is
// not an error.
func (j *Journal) Remove(ctx context.Context, orderID string) error {
	return j.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Delete(&Entry{}).Error
}

// ListOpen returns the in-flight rows of this journal's scope, oldest
// first, for startup recovery.
func (j *Journal) ListOpen(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	err := j.db.WithContext(ctx).
		Where("venue = ? AND market_type = ? AND network = ?",
			j.scope.Venue, j.scope.MarketType, j.scope.Network).
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
