package main

import (
	"context"
	"errors"
	"flag"
	"log"

	"ocrcache/internal/config"
	"ocrcache/internal/daemonrun"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "Configuration file path")
	logLevel := flag.String("log-level", "", "Override the configured log level")
	flag.Parse()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	err = daemonrun.Run(context.Background(), cfg, daemonrun.Options{
		LogLevel: *logLevel,
		Version:  version,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("daemon: %v", err)
	}
}
