// Package main implements the crackstore-coordinator service binary. A
// coordinator routes columns to nodes by column-name hash and fans range
// queries out across the cluster.
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
	"github.com/arkilian/crackstore/internal/coordinator"
	"github.com/arkilian/crackstore/internal/server"
)

func main() {
	configPath := flag.String("config", "", "Path to coordinator config file (YAML or JSON); flags below override it")
	httpAddr := flag.String("http-addr", "", "HTTP server address, overrides config")
	flag.Parse()

	cfg := config.DefaultCoordinatorConfig()
	if *configPath != "" {
		loaded, err := config.LoadCoordinatorConfigFile(*configPath)
		if err != nil {
			log.Fatalf("Failed to load coordinator config: %v", err)
		}
		cfg = loaded
	}
	if *httpAddr != "" {
		cfg.HTTP.Addr = *httpAddr
	}
	cfg.Resolve()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid coordinator config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("Failed to prepare data directories: %v", err)
	}

	log.Printf("Starting crackstore-coordinator...")
	log.Printf("HTTP address: %s", cfg.HTTP.Addr)

	catalog, err := coordinator.NewCatalog(cfg.CatalogPath)
	if err != nil {
		log.Fatalf("Failed to initialize catalog: %v", err)
	}
	log.Printf("Catalog initialized at: %s", cfg.CatalogPath)

	for _, n := range cfg.Nodes {
		if err := catalog.RegisterNode(context.Background(), n.ID, n.Addr); err != nil {
			log.Fatalf("Failed to register static node %s: %v", n.ID, err)
		}
		log.Printf("Registered static node %s at %s", n.ID, n.Addr)
	}

	client := coordinator.NewHTTPNodeClient(cfg.FanoutTimeout)
	co := coordinator.New(catalog, client, cfg.FanoutTimeout, cfg.FanoutConcurrency)

	shutdownMgr := server.NewShutdownManager(server.DefaultShutdownConfig())
	shutdownMgr.RegisterCloser(catalog)

	mux := http.NewServeMux()
	httpapi.NewCoordinatorHandlers(co).Register(mux)
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

	log.Printf("crackstore-coordinator stopped")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","service":"crackstore-coordinator"}`))
}
