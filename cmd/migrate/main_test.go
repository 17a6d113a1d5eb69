package main

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
)

func TestMigrationFilenamePattern(t *testing.T) {
	tests := []struct {
		filename string
		valid    bool
		version  string
		name     string
	}{
		{"0001_create_ledger_tables.sql", true, "0001", "create_ledger_tables"},
		{"001_invalid.sql", false, "", ""},
		{"0001_test", false, "", ""},
		{"0001.sql", false, "", ""},
		{"invalid_0001_test.sql", false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			m := migrationPattern.FindStringSubmatch(tt.filename)
			if (m != nil) != tt.valid {
				t.Fatalf("match = %v, want valid=%v", m, tt.valid)
			}
			if tt.valid && (m[1] != tt.version || m[2] != tt.name) {
				t.Errorf("got version %q name %q", m[1], m[2])
			}
		})
	}
}

func TestParseMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"m/0002_second.sql": {Data: []byte("CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.b` (id INT64);")},
		"m/0001_first.sql":  {Data: []byte("CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.a` (id INT64);")},
	}

	got, err := parseMigrations(fsys, "m", "proj", "ds")
	if err != nil {
		t.Fatalf("parseMigrations: %v", err)
	}
	if len(got) != 2 || got[0].Version != 1 || got[1].Version != 2 {
		t.Fatalf("versions not sorted: %+v", got)
	}
	if got[0].SQL != "CREATE TABLE `proj.ds.a` (id INT64);" {
		t.Errorf("placeholders not replaced: %s", got[0].SQL)
	}

	// checksum ignores the target dataset
	other, err := parseMigrations(fsys, "m", "other-proj", "other-ds")
	if err != nil {
		t.Fatalf("parseMigrations: %v", err)
	}
	if got[0].Checksum != other[0].Checksum {
		t.Error("checksum depends on project/dataset")
	}
	if got[0].Checksum == got[1].Checksum {
		t.Error("different content produced the same checksum")
	}
}

func TestParseMigrationsErrors(t *testing.T) {
	tests := []struct {
		name string
		fsys fstest.MapFS
		want string
	}{
		{"bad name", fstest.MapFS{"m/create.sql": {Data: []byte("x")}}, "invalid migration filename"},
		{"duplicate version", fstest.MapFS{
			"m/0001_a.sql": {Data: []byte("x")},
			"m/0001_b.sql": {Data: []byte("y")},
		}, "share version 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseMigrations(tt.fsys, "m", "p", "d")
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	migrations, err := parseMigrations(migrationsFS, "migrations", "proj", "ds")
	if err != nil {
		t.Fatalf("parseMigrations: %v", err)
	}
	if len(migrations) == 0 {
		t.Fatal("no embedded migrations")
	}

	all := ""
	for _, m := range migrations {
		if strings.Contains(m.SQL, "{{") {
			t.Errorf("%s has unreplaced placeholders", m.Filename)
		}
		all += m.SQL
	}
	for _, table := range []string{"transactions", "accounts", "budgets", "analysis_runs", "insights", "insight_skips"} {
		if !strings.Contains(all, "`proj.ds."+table+"`") {
			t.Errorf("no migration creates %s", table)
		}
	}
}

func TestPendingMigrations(t *testing.T) {
	all := []Migration{{Version: 1}, {Version: 2}, {Version: 3}}
	applied := []AppliedMigration{{Version: 1}, {Version: 3}}

	got := pendingMigrations(all, applied)
	if diff := cmp.Diff([]Migration{{Version: 2}}, got); diff != "" {
		t.Errorf("pending mismatch (-want +got):\n%s", diff)
	}
}
