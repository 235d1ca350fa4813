// Package persistencetest opens in-memory sqlite databases carrying the
// worker's schema, for repository and pipeline tests.
package persistencetest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// schema mirrors migrations/ in sqlite dialect
var schema = []string{
	`CREATE TABLE review_invitations (
		id TEXT PRIMARY KEY,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL,
		entity_type TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		application_id TEXT,
		status TEXT NOT NULL DEFAULT 'TO_DO',
		reason TEXT,
		error_payload TEXT,
		retries_count INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE external_service_tokens (
		host_id TEXT PRIMARY KEY,
		access_token TEXT NOT NULL DEFAULT '',
		access_issued_at DATETIME,
		access_expires_in INTEGER NOT NULL DEFAULT 0,
		refresh_token TEXT NOT NULL DEFAULT '',
		refresh_issued_at DATETIME,
		refresh_expires_in INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE shippers (
		id TEXT PRIMARY KEY,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		in_review_network BOOLEAN NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE parcels (
		id TEXT PRIMARY KEY,
		tracking_number TEXT NOT NULL DEFAULT '',
		shipper_id TEXT,
		destination_country TEXT,
		destination_trusted BOOLEAN NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE requesters (
		id TEXT PRIMARY KEY,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE claims (
		id TEXT PRIMARY KEY,
		entity_id TEXT NOT NULL,
		raised_by TEXT NOT NULL,
		requester_id TEXT,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE merchant_applications (
		application_id TEXT PRIMARY KEY,
		name TEXT NOT NULL
	)`,
}

// OpenSQLite returns a private in-memory database with the schema applied.
// The connection pool is pinned to one connection so every statement sees
// the same memory database.
func OpenSQLite(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}
