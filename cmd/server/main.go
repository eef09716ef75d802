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
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"ntwtf.ai/internal/config"
	"ntwtf.ai/internal/editor"
	"ntwtf.ai/internal/persistence/archive"
	"ntwtf.ai/internal/transport/ws"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to editor.yaml (optional)")
		addr       = flag.String("addr", "", "http listen address (overrides server.addr)")
		dataDir    = flag.String("data", "", "runtime data directory (overrides data_dir)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if a := strings.TrimSpace(*addr); a != "" {
		cfg.Server.Addr = a
	}
	if d := strings.TrimSpace(*dataDir); d != "" {
		cfg.DataDir = d
	}

	rt, err := editor.Open(cfg, logger)
	if err != nil {
		logger.Fatalf("open editor: %v", err)
	}
	defer rt.Close()

	ctx, cancel := signalContext()
	defer cancel()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/v1/saves", func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(archive.Discover(cfg.SaveRoots))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, rt)
	})
	mux.HandleFunc("/v1/ws", ws.NewServer(rt.Session, cfg.SaveRoots, logger).Handler())

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	for _, s := range archive.Discover(cfg.SaveRoots) {
		logger.Printf("save %s (%s, %s)", s.Name, s.Kind, humanize.Bytes(uint64(s.Size)))
	}
	logger.Printf("session %s listening on %s", rt.Session.ID(), cfg.Server.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func writeMetrics(rw http.ResponseWriter, rt *editor.Runtime) {
	loaded := 0
	if _, err := rt.Session.State(); err == nil {
		loaded = 1
	}
	fmt.Fprintf(rw, "# HELP ntwtf_session_loaded Whether a save is loaded.\n")
	fmt.Fprintf(rw, "# TYPE ntwtf_session_loaded gauge\n")
	fmt.Fprintf(rw, "ntwtf_session_loaded{session=%q} %d\n", rt.Session.ID(), loaded)
	if rt.Index == nil {
		return
	}
	st := rt.Index.Stats()
	fmt.Fprintf(rw, "# HELP ntwtf_index_queue_depth Index write queue depth.\n")
	fmt.Fprintf(rw, "# TYPE ntwtf_index_queue_depth gauge\n")
	fmt.Fprintf(rw, "ntwtf_index_queue_depth %d\n", st.QueueDepth)
	fmt.Fprintf(rw, "# HELP ntwtf_index_dropped_total Index writes dropped because the queue was full.\n")
	fmt.Fprintf(rw, "# TYPE ntwtf_index_dropped_total counter\n")
	fmt.Fprintf(rw, "ntwtf_index_dropped_total{kind=%q} %d\n", "event", st.DropEventTotal)
	fmt.Fprintf(rw, "ntwtf_index_dropped_total{kind=%q} %d\n", "snapshot", st.DropSnapshotTotal)
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

func isLoopbackRemote(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(strings.Trim(host, "[]"))
	return ip != nil && ip.IsLoopback()
}
