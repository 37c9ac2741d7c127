package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"github.com/paulsanswrk/dashboard-sync/internal/app"
	"github.com/paulsanswrk/dashboard-sync/internal/config"
	log "github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	command := "serve"
	if args := flag.Args(); len(args) > 0 {
		command = args[0]
	}

	cfg, errLoad := config.Load(*configPath)
	if errLoad != nil {
		log.Fatalf("configuration error: %v", errLoad)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch command {
	case "serve":
		if errRun := app.RunServer(ctx, cfg); errRun != nil {
			log.Fatalf("server error: %v", errRun)
		}
	case "migrate":
		if errMigrate := app.Migrate(ctx, cfg); errMigrate != nil {
			log.Fatalf("migration error: %v", errMigrate)
		}
		log.Info("migrations applied")
	default:
		log.Fatalf("unknown command %q (expected serve or migrate)", command)
	}
}
