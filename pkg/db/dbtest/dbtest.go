// Package dbtest opens throwaway sqlite databases carrying the settlement schema.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS photo_requests (
  id TEXT PRIMARY KEY,
  guest_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'MATCHED',
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS bookings (
  id TEXT PRIMARY KEY,
  request_id TEXT NOT NULL,
  guest_id TEXT NOT NULL,
  photographer_id TEXT NOT NULL,
  total_amount INTEGER NOT NULL,
  platform_fee INTEGER,
  currency TEXT NOT NULL DEFAULT 'usd',
  status TEXT NOT NULL DEFAULT 'CONFIRMED',
  payment_status TEXT NOT NULL DEFAULT 'UNPAID',
  photos_delivered INTEGER NOT NULL DEFAULT 0,
  delivery_url TEXT,
  scheduled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS escrow_payments (
  id TEXT PRIMARY KEY,
  booking_id TEXT NOT NULL UNIQUE,
  guest_id TEXT NOT NULL,
  photographer_id TEXT NOT NULL,
  escrow_status TEXT NOT NULL DEFAULT 'PENDING',
  delivery_status TEXT NOT NULL DEFAULT 'WAITING',
  total_amount INTEGER NOT NULL,
  platform_fee INTEGER NOT NULL,
  photographer_earnings INTEGER NOT NULL,
  currency TEXT NOT NULL,
  gateway_provider TEXT NOT NULL,
  gateway_hold_ref TEXT NOT NULL UNIQUE,
  guest_email TEXT,
  auto_confirm_enabled INTEGER NOT NULL DEFAULT 1,
  auto_confirm_hours INTEGER NOT NULL DEFAULT 72,
  auto_confirm_at DATETIME,
  escrowed_at DATETIME,
  delivered_at DATETIME,
  confirmed_at DATETIME,
  completed_at DATETIME,
  dispute_created_at DATETIME,
  refunded_at DATETIME,
  dispute_reason TEXT,
  capture_claim_id TEXT,
  capture_claimed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS photo_deliveries (
  id TEXT PRIMARY KEY,
  booking_id TEXT NOT NULL UNIQUE,
  photographer_id TEXT NOT NULL,
  delivery_method TEXT NOT NULL,
  photo_count INTEGER NOT NULL,
  resolution TEXT,
  formats TEXT,
  delivery_url TEXT,
  external_url TEXT,
  external_service TEXT,
  external_password TEXT,
  external_expires_at DATETIME,
  notes TEXT,
  delivered_at DATETIME NOT NULL,
  download_expires_at DATETIME NOT NULL,
  download_count INTEGER NOT NULL DEFAULT 0,
  max_downloads INTEGER NOT NULL DEFAULT 10,
  confirmed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS disputes (
  id TEXT PRIMARY KEY,
  booking_id TEXT NOT NULL UNIQUE,
  escrow_payment_id TEXT NOT NULL,
  raised_by TEXT NOT NULL,
  reason TEXT NOT NULL,
  description TEXT NOT NULL,
  evidence_urls TEXT,
  requested_resolution TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'PENDING',
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS reviews (
  id TEXT PRIMARY KEY,
  booking_id TEXT NOT NULL UNIQUE,
  reviewer_id TEXT NOT NULL,
  photographer_id TEXT NOT NULL,
  rating INTEGER NOT NULL,
  photo_quality_rating INTEGER,
  communication_rating INTEGER,
  punctuality_rating INTEGER,
  comment TEXT,
  created_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`,
	`CREATE TABLE IF NOT EXISTS outbox_dlq (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload_json TEXT NOT NULL,
  error_reason TEXT NOT NULL,
  error_message TEXT,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  failed_at DATETIME,
  created_at DATETIME
);`,
}

// Open returns an isolated in-memory database with every settlement table created.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	for _, stmt := range schema {
		require.NoError(t, conn.Exec(stmt).Error)
	}

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	// sqlite shared-cache connections fail fast with "table is locked" instead of waiting.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}
