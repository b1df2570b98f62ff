package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/propertyloyalty/points-backend/pkg/migrate"
)

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration file matches %q", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func assertContainsAll(t *testing.T, content string, checks []string) {
	t.Helper()
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestPointsLedgerMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_points_ledger.sql")
	assertContainsAll(t, content, []string{
		"CREATE TABLE IF NOT EXISTS points_accounts",
		"CONSTRAINT points_accounts_user_identity_key UNIQUE (user_id, identity)",
		"CREATE TABLE IF NOT EXISTS ledger_entries",
		"CHECK (change <> 0)",
		"idx_ledger_entries_account_created",
		"DROP TABLE IF EXISTS ledger_entries",
		"DROP TABLE IF EXISTS points_accounts",
	})
}

func TestSettlementMigrationEnforcesSingleReviewPerOrder(t *testing.T) {
	content := readMigration(t, "*_create_settlement_orders.sql")
	assertContainsAll(t, content, []string{
		"CONSTRAINT settlement_orders_order_id_key UNIQUE (order_id)",
		"CHECK (status IN ('PENDING_REVIEW', 'REVIEWED'))",
		"CONSTRAINT merchant_reviews_order_id_key UNIQUE (order_id)",
		"CHECK (rating BETWEEN 1 AND 5)",
		"content varchar(500)",
	})
}

func TestShareSettingMigrationIsSingleton(t *testing.T) {
	content := readMigration(t, "*_create_share_setting_and_redeem_records.sql")
	assertContainsAll(t, content, []string{
		"CHECK (id = 1)",
		"CHECK (owner_rate BETWEEN 0 AND 100)",
		"CONSTRAINT discount_redeem_records_redeem_id_key UNIQUE (redeem_id)",
	})
}

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("ValidateDir: %v", err)
	}
}
