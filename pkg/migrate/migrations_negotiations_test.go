package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/felipecardoza/agrolink-backend/pkg/migrate"
)

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration file matching %q", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestNegotiationsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_negotiations.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS negotiations",
		"FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE",
		"status negotiation_status NOT NULL DEFAULT 'pending'",
		"CHECK (quantity > 0)",
		"DROP TABLE IF EXISTS negotiations",
	}
	for _, check := range checks {
		if !strings.Contains(content, check) {
			t.Errorf("negotiations migration missing %q", check)
		}
	}
}

func TestChatMessagesMigrationDedupesClientRef(t *testing.T) {
	content := readMigration(t, "*_create_chat_messages.sql")

	if !strings.Contains(content, "UNIQUE (negotiation_id, client_ref)") {
		t.Error("chat messages migration missing client_ref dedupe constraint")
	}
	if !strings.Contains(content, "FOREIGN KEY (negotiation_id) REFERENCES negotiations(id) ON DELETE CASCADE") {
		t.Error("chat messages migration missing negotiation cascade")
	}
}

func TestEnumsMigrationCoversNegotiationStates(t *testing.T) {
	content := readMigration(t, "*_create_enums.sql")

	for _, state := range []string{"'pending'", "'counter_by_farmer'", "'counter_by_buyer'", "'counter_offer'", "'accepted'", "'rejected'"} {
		if !strings.Contains(content, state) {
			t.Errorf("enum migration missing negotiation state %s", state)
		}
	}
}

func TestMigrationDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("migration dir failed validation: %v", err)
	}
}
