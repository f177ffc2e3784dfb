// Package main implements the crackstore-node service binary. A node
// holds a shard of columns in memory and answers range queries against
// them using adaptive cracking.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/arkilian/crackstore/internal/api/http"
	"github.com/arkilian/crackstore/internal/config"
	"github.com/arkilian/crackstore/internal/node"
	"github.com/arkilian/crackstore/internal/observability"
	"github.com/arkilian/crackstore/internal/server"
	"github.com/arkilian/crackstore/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "Path to node config file (YAML or JSON); flags below override it")
	httpAddr := flag.String("http-addr", "", "HTTP server address, overrides config")
	nodeID := flag.String("node-id", "", "Node identifier, overrides config")
	flag.Parse()

	cfg := config.DefaultNodeConfig()
	if *configPath != "" {
		loaded, err := config.LoadNodeConfigFile(*configPath)
		if err != nil {
			log.Fatalf("Failed to load node config: %v", err)
		}
		cfg = loaded
	}
	if *httpAddr != "" {
		cfg.HTTP.Addr = *httpAddr
	}
	if *nodeID != "" {
		cfg.NodeID = *nodeID
	}
	cfg.Resolve()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid node config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("Failed to prepare data directories: %v", err)
	}

	log.Printf("Starting crackstore-node %q...", cfg.NodeID)
	log.Printf("HTTP address: %s", cfg.HTTP.Addr)

	var objStorage storage.ObjectStorage
	switch cfg.Storage.Type {
	case "s3":
		s3cfg := storage.DefaultS3Config()
		s3cfg.Region = cfg.Storage.S3.Region
		s3cfg.Endpoint = cfg.Storage.S3.Endpoint
		s3Store, err := storage.NewS3Storage(context.Background(), cfg.Storage.S3.Bucket, s3cfg)
		if err != nil {
			log.Fatalf("Failed to initialize S3 storage: %v", err)
		}
		objStorage = s3Store
		log.Printf("Object storage: s3 bucket=%s region=%s", cfg.Storage.S3.Bucket, cfg.Storage.S3.Region)
	default:
		localStore, err := storage.NewLocalStorage(cfg.Storage.Path)
		if err != nil {
			log.Fatalf("Failed to initialize local storage: %v", err)
		}
		objStorage = localStore
		log.Printf("Object storage: local path=%s", cfg.Storage.Path)
	}

	metrics := observability.NewNodeMetrics(cfg.MetricsWindow)
	n := node.New(cfg.NodeID, objStorage, cfg.DefaultExtraCapacity, metrics)

	shutdownMgr := server.NewShutdownManager(server.DefaultShutdownConfig())

	pruneStop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(cfg.MetricsWindow / 4)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.Prune()
			case <-pruneStop:
				return
			}
		}
	}()
	shutdownMgr.RegisterCloser(server.CloserFunc(func() error {
		close(pruneStop)
		return nil
	}))

	mux := http.NewServeMux()
	httpapi.NewNodeHandlers(n).Register(mux)
	mux.HandleFunc("/health", healthHandler)

	httpServer := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      server.ShutdownMiddleware(shutdownMgr)(mux),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTP.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigCh
	log.Printf("Received signal: %v, initiating graceful shutdown...", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := shutdownMgr.Shutdown(ctx, fmt.Sprintf("received signal: %v", sig)); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Printf("crackstore-node %q stopped", cfg.NodeID)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","service":"crackstore-node"}`))
}
