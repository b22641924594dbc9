package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"wayfarer.game/internal/sim/catalogs"
	"wayfarer.game/internal/sim/scenario"
	"wayfarer.game/internal/sim/session"
	"wayfarer.game/internal/sim/tuning"
)

func main() {
	var (
		scriptPath = flag.String("script", "./scripts/first_week.yaml", "scenario script")
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		quiet      = flag.Bool("quiet", false, "print only mismatches and the verdict")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[playthrough] ", log.LstdFlags)

	sc, err := scenario.Load(*scriptPath)
	if err != nil {
		logger.Fatalf("load script: %v", err)
	}
	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}
	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		logger.Fatalf("load tuning: %v", err)
	}

	s, err := session.New(sc.Configure(session.Config{Tuning: tune, Catalogs: cats}))
	if err != nil {
		logger.Fatalf("session: %v", err)
	}

	results, err := scenario.Run(s, sc)
	if err != nil {
		logger.Fatalf("run: %v", err)
	}

	for _, r := range results {
		if *quiet && len(r.Mismatches) == 0 {
			continue
		}
		status := "ok"
		if !r.OK {
			status = "denied " + r.Code
		}
		fmt.Printf("%3d %-32s %s", r.Index, r.Action, status)
		if r.Message != "" {
			fmt.Printf(" | %s", r.Message)
		}
		fmt.Println()
		for _, m := range r.Messages {
			fmt.Printf("      [day %d %s] %s\n", m.Day, m.Category, m.Text)
		}
		for _, m := range r.Mismatches {
			fmt.Printf("      MISMATCH %s\n", m)
		}
	}

	v := s.View()
	fmt.Printf("day %d %s: coins=%d reputation=%d (%s)\n", v.Clock.Day, v.Clock.Block, v.Coins, v.Reputation, v.Standing)
	if !scenario.Passed(results) {
		fmt.Println("FAIL")
		os.Exit(1)
	}
	fmt.Println("PASS")
}
