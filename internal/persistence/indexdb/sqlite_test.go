package indexdb

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"wayfarer.game/internal/sim/catalogs"
	"wayfarer.game/internal/sim/session"
	"wayfarer.game/internal/sim/tuning"
)

func TestSQLiteIndex_AuditsAndDays(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.db")

	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	_ = idx.WriteAudit(session.AuditEntry{SessionID: "s1", Seq: 1, Day: 1, Actor: "PLAYER", Action: "CONTRACT_ACCEPT", ContractID: "c1"})
	_ = idx.WriteAudit(session.AuditEntry{SessionID: "s1", Seq: 2, Day: 3, Actor: "WORLD", Action: "CONTRACT_FAIL", ContractID: "c1", Reason: "DEADLINE"})
	_ = idx.WriteAudit(session.AuditEntry{SessionID: "s2", Seq: 1, Day: 1, Actor: "PLAYER", Action: "CONTRACT_ACCEPT", ContractID: "c2"})
	_ = idx.RecordDay(session.DaySummary{SessionID: "s1", Day: 2, Active: 1, Coins: 10})
	_ = idx.RecordDay(session.DaySummary{SessionID: "s1", Day: 1, Active: 1, Coins: 10})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := idx.Sync(ctx); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	days, err := idx.Days(ctx, "s1")
	if err != nil {
		t.Fatalf("Days: %v", err)
	}
	if len(days) != 2 || days[0].Day != 1 || days[1].Day != 2 {
		t.Fatalf("days: %+v", days)
	}
	trail, err := idx.ContractTrail(ctx, "c1")
	if err != nil {
		t.Fatalf("ContractTrail: %v", err)
	}
	if len(trail) != 2 || trail[1].Action != "CONTRACT_FAIL" || trail[1].Reason != "DEADLINE" {
		t.Fatalf("trail: %+v", trail)
	}

	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Writes after close are ignored.
	if err := idx.WriteAudit(session.AuditEntry{SessionID: "s3"}); err != nil {
		t.Fatalf("WriteAudit after close: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM audits WHERE action='CONTRACT_ACCEPT'`).Scan(&n); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 accepts, got %d", n)
	}
}

func TestSQLiteIndex_UpsertCatalogs(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "configs")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	contracts := `[{"id":"c1","description":"Go to town","requirements":{"destinations":["town"]},"start_day":1,"due_day":3,"payment":5}]`
	if err := os.WriteFile(filepath.Join(cfgDir, "contracts.json"), []byte(contracts), 0o644); err != nil {
		t.Fatal(err)
	}
	cats, err := catalogs.Load(cfgDir)
	if err != nil {
		t.Fatalf("catalogs.Load: %v", err)
	}

	path := filepath.Join(dir, "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := idx.UpsertCatalogs(cfgDir, cats, tuning.Defaults()); err != nil {
		t.Fatalf("UpsertCatalogs: %v", err)
	}
	_ = idx.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()
	var digest string
	if err := db.QueryRow(`SELECT digest FROM catalogs WHERE name='contracts'`).Scan(&digest); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if digest != cats.Contracts.Digest {
		t.Fatalf("digest mismatch: %s vs %s", digest, cats.Contracts.Digest)
	}
	var version string
	if err := db.QueryRow(`SELECT value FROM meta WHERE key='protocol_version'`).Scan(&version); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if version != tuning.Defaults().ProtocolVersion {
		t.Fatalf("protocol_version: %s", version)
	}
}
