package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/forgeval/forgeval/internal/auth"
	"github.com/forgeval/forgeval/internal/config"
	"github.com/forgeval/forgeval/internal/platform"
	"github.com/forgeval/forgeval/internal/web"
)

var (
	loadDotEnv         = godotenv.Load
	defaultListenServe = http.ListenAndServe
)

func main() {
	if err := run(context.Background(), defaultListenServe); err != nil {
		log.Fatalf("[Platform Server] %v", err)
	}
}

func run(ctx context.Context, serve func(string, http.Handler) error) error {
	// Load .env file (ignore error if file doesn't exist)
	_ = loadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log.Println("[Platform Server] Starting mock developer platform v1.0.0")
	log.Printf("[Platform Server] Repository: %s/%s (default branch %s)", cfg.RepoOwner, cfg.RepoName, cfg.DefaultBranch)
	log.Printf("[Platform Server] Bare repo: %s", cfg.BareRepoPath)
	log.Printf("[Platform Server] Hidden refs: %d, read-only: %v", len(cfg.HiddenBranches), cfg.ReadOnly)

	svc, err := platform.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize platform: %w", err)
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "mock-platform",
		Version: "v1.0.0",
	}, nil)
	svc.Register(server)

	// Optional inspection frontend for operators; tool traffic stays on
	// stdio.
	if cfg.FrontendPort > 0 {
		admin := auth.New(cfg.AdminSecret, "platformd")
		r := mux.NewRouter()
		web.NewHandler(svc, admin).RegisterRoutes(r)

		addr := fmt.Sprintf(":%d", cfg.FrontendPort)
		log.Printf("[Platform Server] Inspection frontend on %s", addr)
		go func() {
			if err := serve(addr, r); err != nil {
				log.Printf("[Platform Server] Frontend stopped: %v", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("[Platform Server] Received shutdown signal")
		cancel()
	}()

	log.Println("[Platform Server] Serving tools on stdio transport...")
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	log.Println("[Platform Server] Server stopped gracefully")
	return nil
}
