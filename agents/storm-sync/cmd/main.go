package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	stormsync "storm-sync/agents/storm-sync"
	"storm-sync/shared/config"
	"storm-sync/shared/logging"
	"storm-sync/shared/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logging.Init(cfg.Debug); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.Sync()
	logger := logging.Get()

	if err := cfg.ValidateStormSync(); err != nil {
		logger.Fatalf("Failed to validate Storm-Sync configuration: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	agent := stormsync.NewStormSyncAgent(cfg)
	defer agent.Close()
	s := scheduler.New(cfg, agent)

	if len(os.Args) > 1 && os.Args[1] == "--once" {
		fmt.Println("Running once...")
		if err := agent.Initialize(); err != nil {
			logger.Fatalf("Failed to initialize agent: %v", err)
		}

		if err := s.RunOnce(ctx); err != nil {
			logger.Fatalf("Failed to run: %v", err)
		}

		c := agent.Conditions()
		fmt.Printf("Temperature: %s\nPressure: %s\nActively Raining: %s\nOutlook: %s\nPrediction: %s\n",
			c.Temperature, c.Pressure, c.Raining, c.Outlook, c.Prediction)
		return
	}

	fmt.Println("Starting scheduler...")

	if err := s.Start(ctx); err != nil && ctx.Err() == nil {
		logger.Fatalf("Scheduler failed: %v", err)
	}
}
