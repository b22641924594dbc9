package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	persistlog "wayfarer.game/internal/persistence/log"
	"wayfarer.game/internal/sim/session"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "audit":
			auditCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

// listCmd prints the audit log files in the data directory.
func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	files, err := persistlog.ListFiles(filepath.Join(*dataDir, "events"), "audit")
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, f := range files {
		fmt.Println(filepath.Base(f))
	}
}

// auditCmd prints audit entries from the JSONL logs, optionally filtered.
func auditCmd(args []string) {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	sessionID := fs.String("session", "", "session id filter")
	contractID := fs.String("contract", "", "contract id filter")
	action := fs.String("action", "", "action filter, e.g. CONTRACT_FAIL")
	summary := fs.Bool("summary", false, "print per-action counts instead of entries")
	_ = fs.Parse(args)

	files, err := persistlog.ListFiles(filepath.Join(*dataDir, "events"), "audit")
	if err != nil {
		fmt.Fprintln(os.Stderr, "list:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no audit files found in", *dataDir)
		os.Exit(1)
	}

	f := auditFilter{
		SessionID:  strings.TrimSpace(*sessionID),
		ContractID: strings.TrimSpace(*contractID),
		Action:     strings.ToUpper(strings.TrimSpace(*action)),
	}
	counts := map[string]int{}
	for _, path := range files {
		err := persistlog.ReadAuditFile(path, func(e session.AuditEntry) error {
			if !f.match(e) {
				return nil
			}
			if *summary {
				counts[e.Action]++
				return nil
			}
			printJSON(e)
			return nil
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "read:", err)
			os.Exit(1)
		}
	}
	if *summary {
		printJSON(counts)
	}
}

type auditFilter struct {
	SessionID  string
	ContractID string
	Action     string
}

func (f auditFilter) match(e session.AuditEntry) bool {
	if f.SessionID != "" && e.SessionID != f.SessionID {
		return false
	}
	if f.ContractID != "" && e.ContractID != f.ContractID {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	return true
}
