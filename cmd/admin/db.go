package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"wayfarer.game/internal/persistence/indexdb"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	sessionID := fs.String("session", "", "session id (days)")
	contractID := fs.String("contract", "", "contract id (trail)")
	limit := fs.Int("limit", 20, "result limit (failures)")
	_ = fs.Parse(args)

	q := "catalogs"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "index", "wayfarer.sqlite")
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch q {
	case "catalogs":
		db := openRaw(path)
		defer db.Close()
		rows, err := db.QueryContext(ctx, `SELECT name,digest,updated_at FROM catalogs ORDER BY name`)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var name, digest, updated string
			if err := rows.Scan(&name, &digest, &updated); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(map[string]any{"name": name, "digest": digest, "updated_at": updated})
		}

	case "days":
		if *sessionID == "" {
			fmt.Fprintln(os.Stderr, "missing -session")
			os.Exit(2)
		}
		idx := openIndex(path)
		defer idx.Close()
		days, err := idx.Days(ctx, *sessionID)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		for _, d := range days {
			printJSON(d)
		}

	case "trail":
		if *contractID == "" {
			fmt.Fprintln(os.Stderr, "missing -contract")
			os.Exit(2)
		}
		idx := openIndex(path)
		defer idx.Close()
		trail, err := idx.ContractTrail(ctx, *contractID)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		for _, e := range trail {
			printJSON(e)
		}

	case "failures":
		db := openRaw(path)
		defer db.Close()
		rows, err := db.QueryContext(ctx, `SELECT contract_id, COUNT(*) AS n FROM audits WHERE action='CONTRACT_FAIL' GROUP BY contract_id ORDER BY n DESC, contract_id LIMIT ?`, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var id string
			var n int
			if err := rows.Scan(&id, &n); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(map[string]any{"contract_id": id, "failures": n})
		}

	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q, "(catalogs|days|trail|failures)")
		os.Exit(2)
	}
}

func openRaw(path string) *sql.DB {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	return db
}

func openIndex(path string) *indexdb.SQLiteIndex {
	idx, err := indexdb.OpenSQLite(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	return idx
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
