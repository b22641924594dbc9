package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"wayfarer.game/internal/persistence/indexdb"
	persistlog "wayfarer.game/internal/persistence/log"
	"wayfarer.game/internal/platform/config"
	"wayfarer.game/internal/sim/catalogs"
	"wayfarer.game/internal/sim/session"
	"wayfarer.game/internal/sim/tuning"
	"wayfarer.game/internal/transport/ws"
)

func main() {
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	envCfg, err := config.LoadServer()
	if err != nil {
		logger.Fatalf("%v", err)
	}

	var (
		addr       = flag.String("addr", envCfg.Addr, "http listen address")
		configDir  = flag.String("configs", envCfg.ConfigDir, "config directory")
		dataDir    = flag.String("data", envCfg.DataDir, "runtime data directory")
		tuningPath = flag.String("tuning", envCfg.TuningPath, "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", envCfg.DisableDB, "disable the sqlite audit index")
	)
	flag.Parse()

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
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		logger.Fatalf("data dir: %v", err)
	}
	auditLog := persistlog.NewAuditLogger(*dataDir)
	defer auditLog.Close()

	sessCfg := session.Config{
		Tuning:   tune,
		Catalogs: cats,
		Audit:    auditLog,
	}

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(*dataDir, "index", "wayfarer.sqlite"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
		if err := idx.UpsertCatalogs(*configDir, cats, tune); err != nil {
			logger.Printf("index: upsert catalogs: %v", err)
		}
		sessCfg.Audit = session.MultiSink{auditLog, idx}
		sessCfg.Days = idx
	}
	logger.Printf("catalogs: %d contracts (digest %s)", len(cats.Contracts.Order), shortDigest(cats.Contracts.Digest))

	ctx, cancel := signalContext()
	defer cancel()

	rt := session.NewRuntime(sessCfg, logger)
	go func() {
		if err := rt.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("runtime stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, rt.Metrics(), idx)
	})
	mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(struct {
			ProtocolVersion string            `json:"protocol_version"`
			Catalogs        map[string]string `json:"catalogs"`
			Metrics         session.Metrics   `json:"metrics"`
		}{
			ProtocolVersion: tune.ProtocolVersion,
			Catalogs:        cats.Digests(),
			Metrics:         rt.Metrics(),
		})
	})
	mux.HandleFunc("/v1/ws", ws.NewServer(rt, cats.Digests(), logger).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

// Minimal Prometheus exposition format.
func writeMetrics(rw http.ResponseWriter, m session.Metrics, idx *indexdb.SQLiteIndex) {
	fmt.Fprintf(rw, "# HELP wayfarer_sessions Live player sessions.\n")
	fmt.Fprintf(rw, "# TYPE wayfarer_sessions gauge\n")
	fmt.Fprintf(rw, "wayfarer_sessions %d\n", m.Sessions)

	fmt.Fprintf(rw, "# HELP wayfarer_commands_total Player actions applied.\n")
	fmt.Fprintf(rw, "# TYPE wayfarer_commands_total counter\n")
	fmt.Fprintf(rw, "wayfarer_commands_total %d\n", m.Commands)

	fmt.Fprintf(rw, "# HELP wayfarer_queue_depth Runtime channel backlog.\n")
	fmt.Fprintf(rw, "# TYPE wayfarer_queue_depth gauge\n")
	fmt.Fprintf(rw, "wayfarer_queue_depth{queue=%q} %d\n", "inbox", m.InboxDepth)
	fmt.Fprintf(rw, "wayfarer_queue_depth{queue=%q} %d\n", "join", m.JoinDepth)

	if idx != nil {
		fmt.Fprintf(rw, "# HELP wayfarer_index_dropped_total Index writes dropped on a full queue.\n")
		fmt.Fprintf(rw, "# TYPE wayfarer_index_dropped_total counter\n")
		fmt.Fprintf(rw, "wayfarer_index_dropped_total %d\n", idx.Dropped())
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
