package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/GriffinCanCode/AgentOS/pipefs/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/pipefs/internal/infrastructure/server"
)

func main() {
	configPath := flag.String("config", "", "YAML or TOML config file overlaid on the environment")
	port := flag.String("port", "", "HTTP port (overrides config)")
	flag.Parse()

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = srv.Run(ctx)
	_ = srv.Close()
	if err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
