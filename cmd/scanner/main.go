package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"groww-scanner/config"
	"groww-scanner/internal/logger"
	"groww-scanner/internal/scanner"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	cfg := config.Load()
	logger.Init("scanner", logger.ParseLevel(cfg.LogLevel))
	log.Printf("[scanner] timeframes: %v, ingest every %s, compute every %s",
		cfg.Timeframes(), cfg.IngestInterval(), cfg.ComputeInterval())

	svc, err := scanner.New(cfg)
	if err != nil {
		log.Fatalf("[scanner] init failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := svc.Run(ctx); err != nil {
		log.Fatalf("[scanner] fatal: %v", err)
	}
}
