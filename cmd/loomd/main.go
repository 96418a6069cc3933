package main

import (
	"context"
	"flag"
	"log"

	"loom/internal/config"
	"loom/internal/daemonrun"
)

func main() {
	configPath := flag.String("config", "", "path to the loom config file")
	logLevel := flag.String("log-level", "", "override the configured log level")
	flag.Parse()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{LogLevel: *logLevel}); err != nil {
		log.Fatalf("loomd: %v", err)
	}
}
