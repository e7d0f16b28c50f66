package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	sensoruploader "storm-sync/agents/sensor-uploader"
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

	if err := cfg.ValidateSensorUploader(); err != nil {
		logger.Fatalf("Failed to validate sensor uploader configuration: %v", err)
	}

	// The uploader ticks on its own interval and serves health on its own port,
	// so it can share a host and config file with the dashboard agent.
	cfg.Poll.Interval = cfg.Sensor.UploadInterval
	cfg.Monitoring.HealthPort = cfg.Sensor.HealthPort

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	uploader := sensoruploader.NewUploader(cfg)
	defer uploader.Close()
	s := scheduler.New(cfg, uploader)

	if len(os.Args) > 1 && os.Args[1] == "--once" {
		fmt.Println("Running once...")
		rec, err := uploader.UploadOnce(ctx)
		if err != nil {
			logger.Fatalf("Failed to upload reading: %v", err)
		}
		fmt.Printf("Uploaded reading:\nTemperature: %.2f°C\nPressure: %.2f mb\nWetness: %d\n", rec.TemperatureC, rec.PressureMb, rec.Wetness)
		return
	}

	fmt.Println("Starting scheduler...")

	if err := s.Start(ctx); err != nil && ctx.Err() == nil {
		logger.Fatalf("Scheduler failed: %v", err)
	}
}
