package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/skyserve/skyserve-backend/pkg/migrate"
)

func TestInitSchemaMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_init_schema.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no init schema migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE shop_orders",
		"CONSTRAINT idx_fleet_units_shop_name UNIQUE (shop_id, name)",
		"CONSTRAINT ux_payments_external_order_id UNIQUE (external_order_id)",
		"CHECK (qty > 0)",
		"WHERE published_at IS NULL",
		"DROP TABLE IF EXISTS shop_orders",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestValidateMigrationsDir(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}
