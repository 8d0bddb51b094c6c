package main

import (
	"context"
	"flag"
	"log"

	"github.com/Black-And-White-Club/promptduel/app"
	"github.com/Black-And-White-Club/promptduel/config"
)

func main() {
	configFile := flag.String("config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := app.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize app: %v", err)
	}

	if err := application.Start(ctx); err != nil {
		log.Fatalf("Application stopped with error: %v", err)
	}
}
