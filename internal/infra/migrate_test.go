package infra

import (
	"strings"
	"testing"
)

func TestMigrationsAreOrderedAndCoverTables(t *testing.T) {
	names, err := migrationNames()
	if err != nil {
		t.Fatalf("migration names: %v", err)
	}
	if len(names) == 0 {
		t.Fatal("expected embedded migrations")
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("migrations out of order: %v", names)
		}
	}

	var all strings.Builder
	for _, name := range names {
		content, err := migrationFiles.ReadFile("migrations/" + name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		all.Write(content)
	}
	for _, table := range []string{"users", "accounts", "transactions", "entries", "wallets",
		"transaction_fingerprints", "receipts", "payment_requests", "support_messages"} {
		if !strings.Contains(all.String(), "CREATE TABLE IF NOT EXISTS "+table+" (") {
			t.Errorf("missing table %s", table)
		}
	}
}
