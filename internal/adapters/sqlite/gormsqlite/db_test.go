package gormsqlite

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuildDSNIncludesPerConnectionPragmas(t *testing.T) {
	reader := buildDSN("./db.sqlite", true)
	writer := buildDSN("./db.sqlite", false)

	checks := []string{
		"_pragma=journal_mode(WAL)",
		"_pragma=synchronous(NORMAL)",
		"_pragma=foreign_keys(1)",
		"_pragma=busy_timeout(5000)",
		"_pragma=trusted_schema(OFF)",
	}
	for _, c := range checks {
		if !strings.Contains(reader, c) {
			t.Fatalf("reader dsn missing %q: %s", c, reader)
		}
		if !strings.Contains(writer, c) {
			t.Fatalf("writer dsn missing %q: %s", c, writer)
		}
	}

	if !strings.Contains(reader, "_pragma=query_only(1)") {
		t.Fatalf("reader dsn missing query_only(1): %s", reader)
	}
	if !strings.Contains(writer, "_pragma=query_only(0)") {
		t.Fatalf("writer dsn missing query_only(0): %s", writer)
	}
}

func TestReaderHandleRejectsWrites(t *testing.T) {
	ctx := context.Background()
	db, err := Open(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	err = db.WriteTX(ctx, func(tx *Tx) error {
		return tx.Exec("CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT)").Error
	})
	if err != nil {
		t.Fatalf("create table via writer: %v", err)
	}

	if err := db.R.Exec("INSERT INTO items (name) VALUES ('x')").Error; err == nil {
		t.Fatal("expected the query_only reader to reject writes")
	}

	err = db.WriteTX(ctx, func(tx *Tx) error {
		return tx.Exec("INSERT INTO items (name) VALUES ('x')").Error
	})
	if err != nil {
		t.Fatalf("insert via writer: %v", err)
	}

	var count int64
	if err := db.R.Raw("SELECT COUNT(*) FROM items").Scan(&count).Error; err != nil {
		t.Fatalf("count via reader: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected reader to see the committed row, got %d", count)
	}
}
