package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/orbitlab/starmap/internal/session"
	"github.com/orbitlab/starmap/pkg/command"
	"github.com/orbitlab/starmap/pkg/report"
	"github.com/orbitlab/starmap/pkg/server"
	"github.com/orbitlab/starmap/pkg/statesync"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	addrFlag := flag.String("addr", "", "listen address (overrides config)")
	backendFlag := flag.String("backend", "", "simulation backend URL (overrides config)")

	flag.Parse()

	_ = godotenv.Load()

	cfg := session.DefaultConfig()
	if *configPath != "" {
		loaded, err := session.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Config load failed: %v", err)
		}
		cfg = loaded
	}

	// Env and flags layer over the file, flags winning.
	if v := os.Getenv("STARMAP_BACKEND_URL"); v != "" {
		cfg.BackendURL = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.ListenAddr = ":" + v
	}
	if *backendFlag != "" {
		cfg.BackendURL = *backendFlag
	}
	if *addrFlag != "" {
		cfg.ListenAddr = *addrFlag
	}

	fmt.Printf("Starting star map viewer. Backend: %s\n", cfg.BackendURL)

	reporter := report.New(cfg.BackendURL)
	sess := session.New(cfg, reporter)

	syncCfg := statesync.DefaultConfig()
	syncCfg.BaseURL = cfg.BackendURL
	syncCfg.Interval = cfg.PollInterval
	client := statesync.New(syncCfg, sess)

	dispatcher := command.New(cfg.BackendURL, client)

	// The server hooks the session's event stream; it must exist before
	// any goroutine can bootstrap or settle the session.
	srv := server.NewServer(sess, dispatcher)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go client.Run(ctx)
	go sess.Run(ctx)
	go func() {
		<-ctx.Done()
		log.Println("Shutting down")
		os.Exit(0)
	}()
	if err := srv.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
