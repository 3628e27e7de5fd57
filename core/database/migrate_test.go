package database

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestListMigrationFilesAndSelectApplied(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"000002_payout_proof.up.sql",
		"000001_init.up.sql",
		"000001_init.down.sql",
		"README.md",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("--"), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	files := listMigrationFiles(dir)
	want := []string{"000001_init.up.sql", "000002_payout_proof.up.sql"}
	if !reflect.DeepEqual(files, want) {
		t.Fatalf("files = %v, want %v", files, want)
	}

	if got := selectApplied(files, 0, 2); len(got) != 2 {
		t.Fatalf("expected both files applied, got %v", got)
	}
	if got := selectApplied(files, 1, 2); !reflect.DeepEqual(got, []string{"000002_payout_proof.up.sql"}) {
		t.Fatalf("unexpected applied set %v", got)
	}
	if got := selectApplied(files, 2, 2); len(got) != 0 {
		t.Fatalf("expected nothing applied, got %v", got)
	}
}

func TestParseVersion(t *testing.T) {
	if v := parseVersion("000017_add_index.up.sql"); v != 17 {
		t.Fatalf("version = %d", v)
	}
	if v := parseVersion("garbage"); v != 0 {
		t.Fatalf("version = %d, want 0", v)
	}
}
