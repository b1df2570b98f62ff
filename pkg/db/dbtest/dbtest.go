// Package dbtest opens throwaway sqlite databases carrying the points schema.
package dbtest

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/propertyloyalty/points-backend/pkg/db"
	"github.com/propertyloyalty/points-backend/pkg/db/models"
	"github.com/propertyloyalty/points-backend/pkg/enums"
)

// sqlite mirror of the goose migrations; types are chosen so mattn/go-sqlite3 hands
// back time.Time for DATETIME/DATE columns.
var schema = []string{
	`CREATE TABLE property_profiles (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL UNIQUE,
		property_code TEXT NOT NULL UNIQUE,
		property_name TEXT NOT NULL,
		community_name TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE users (
		id TEXT PRIMARY KEY,
		system_id TEXT NOT NULL UNIQUE,
		phone_number TEXT NOT NULL DEFAULT '',
		identity_type TEXT NOT NULL CHECK (identity_type IN ('OWNER', 'MERCHANT', 'PROPERTY', 'ADMIN')),
		owner_property_id TEXT NULL REFERENCES property_profiles(id) ON DELETE SET NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE merchant_profiles (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
		merchant_code TEXT NOT NULL UNIQUE,
		merchant_name TEXT NOT NULL,
		merchant_type TEXT NOT NULL DEFAULT 'NORMAL',
		rating_count INTEGER NOT NULL DEFAULT 0,
		avg_score NUMERIC NOT NULL DEFAULT 0,
		positive_rating_percent INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE points_accounts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		identity TEXT NOT NULL CHECK (identity IN ('OWNER', 'MERCHANT', 'PROPERTY')),
		daily_points INTEGER NOT NULL DEFAULT 0,
		total_points INTEGER NOT NULL DEFAULT 0,
		daily_points_date DATE NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		CONSTRAINT points_accounts_user_identity_key UNIQUE (user_id, identity)
	)`,
	`CREATE TABLE ledger_entries (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		identity TEXT NOT NULL,
		change INTEGER NOT NULL CHECK (change <> 0),
		daily_points INTEGER NOT NULL,
		total_points INTEGER NOT NULL,
		source_type TEXT NOT NULL,
		source_meta TEXT NOT NULL DEFAULT '{}',
		correlation_id TEXT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE settlement_orders (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL UNIQUE,
		merchant_id TEXT NOT NULL REFERENCES merchant_profiles(id) ON DELETE CASCADE,
		owner_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		amount NUMERIC NOT NULL,
		amount_int INTEGER NOT NULL,
		merchant_points INTEGER NOT NULL DEFAULT 0,
		owner_points INTEGER NOT NULL DEFAULT 0,
		owner_rate INTEGER NOT NULL CHECK (owner_rate BETWEEN 0 AND 100),
		status TEXT NOT NULL CHECK (status IN ('PENDING_REVIEW', 'REVIEWED')),
		reviewed_at DATETIME NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE merchant_reviews (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL REFERENCES settlement_orders(id) ON DELETE CASCADE,
		merchant_id TEXT NOT NULL REFERENCES merchant_profiles(id) ON DELETE CASCADE,
		owner_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
		content TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		CONSTRAINT merchant_reviews_order_id_key UNIQUE (order_id)
	)`,
	`CREATE TABLE points_share_settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		owner_rate INTEGER NOT NULL CHECK (owner_rate BETWEEN 0 AND 100),
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE discount_redeem_records (
		id TEXT PRIMARY KEY,
		redeem_id TEXT NOT NULL UNIQUE,
		merchant_id TEXT NOT NULL REFERENCES merchant_profiles(id) ON DELETE CASCADE,
		owner_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		owner_phone_number TEXT NOT NULL DEFAULT '',
		points INTEGER NOT NULL CHECK (points > 0),
		created_at DATETIME NOT NULL
	)`,
}

// Open creates a fresh sqlite file under t.TempDir with the points schema applied.
// Transactions start with BEGIN IMMEDIATE so concurrent writers queue on the busy
// timeout instead of failing on lock upgrade.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "points.db")
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_txlock=immediate&_foreign_keys=on", path)

	conn, err := gorm.Open(sqlite.Open(dsn), db.GormConfig())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return conn
}

// Client wraps Open in the shared db.Client so services get the real WithTx.
func Client(t testing.TB) (*db.Client, *gorm.DB) {
	t.Helper()
	conn := Open(t)
	return db.Wrap(conn), conn
}

// SeedUser inserts a user acting under the given identity.
func SeedUser(t testing.TB, conn *gorm.DB, identity enums.Identity, phone string) models.User {
	t.Helper()
	user := models.User{
		SystemID:     fmt.Sprintf("%s_%s", identity, uuid.NewString()[:8]),
		PhoneNumber:  phone,
		IdentityType: identity,
	}
	if err := conn.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

// SeedMerchant inserts a MERCHANT user plus its merchant profile.
func SeedMerchant(t testing.TB, conn *gorm.DB, merchantType enums.MerchantType) (models.User, models.MerchantProfile) {
	t.Helper()
	user := SeedUser(t, conn, enums.IdentityMerchant, "")
	merchant := models.MerchantProfile{
		UserID:       user.ID,
		MerchantCode: "M" + uuid.NewString()[:8],
		MerchantName: "merchant " + user.SystemID,
		MerchantType: merchantType,
		AvgScore:     decimal.Zero,
	}
	if err := conn.Create(&merchant).Error; err != nil {
		t.Fatalf("seed merchant: %v", err)
	}
	return user, merchant
}

// SeedProperty inserts a PROPERTY user plus its property profile.
func SeedProperty(t testing.TB, conn *gorm.DB) (models.User, models.PropertyProfile) {
	t.Helper()
	user := SeedUser(t, conn, enums.IdentityProperty, "")
	profile := models.PropertyProfile{
		UserID:        user.ID,
		PropertyCode:  "P" + uuid.NewString()[:8],
		PropertyName:  "property " + user.SystemID,
		CommunityName: "garden court",
	}
	if err := conn.Create(&profile).Error; err != nil {
		t.Fatalf("seed property: %v", err)
	}
	return user, profile
}

// SeedOwner inserts an OWNER user, optionally bound to a property profile.
func SeedOwner(t testing.TB, conn *gorm.DB, phone string, property *models.PropertyProfile) models.User {
	t.Helper()
	user := SeedUser(t, conn, enums.IdentityOwner, phone)
	if property != nil {
		user.OwnerPropertyID = &property.ID
		if err := conn.Model(&user).Update("owner_property_id", property.ID).Error; err != nil {
			t.Fatalf("bind owner property: %v", err)
		}
	}
	return user
}

// SeedBalance gives an account an opening balance backed by a matching ledger entry so
// reconciliation holds.
func SeedBalance(t testing.TB, conn *gorm.DB, userID uuid.UUID, identity enums.Identity, points int64) models.PointsAccount {
	t.Helper()
	account := models.PointsAccount{
		UserID:      userID,
		Identity:    identity,
		DailyPoints: 0,
		TotalPoints: points,
	}
	if err := conn.Create(&account).Error; err != nil {
		t.Fatalf("seed account: %v", err)
	}
	if points != 0 {
		entry := models.LedgerEntry{
			UserID:      userID,
			Identity:    identity,
			Change:      points,
			DailyPoints: 0,
			TotalPoints: points,
			SourceType:  enums.LedgerSourceTypeAdminAdjust,
			SourceMeta:  map[string]any{"action": "seed"},
		}
		if err := conn.Create(&entry).Error; err != nil {
			t.Fatalf("seed ledger entry: %v", err)
		}
	}
	return account
}
