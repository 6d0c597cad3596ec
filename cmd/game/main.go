package main

import (
	"flag"

	"go.uber.org/zap"

	"entity-forge/internal/game"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	logger := newLogger(*debug)
	defer func() { _ = logger.Sync() }()

	cfg := game.DefaultConfig()
	if *configPath != "" {
		loaded, err := game.LoadConfig(*configPath)
		if err != nil {
			logger.Fatal("failed to load config", zap.Error(err))
		}
		cfg = loaded
	}

	g, err := game.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to build world", zap.Error(err))
	}
	if err := g.Run(); err != nil {
		logger.Fatal("game loop exited", zap.Error(err))
	}
}

func newLogger(debug bool) *zap.Logger {
	if debug {
		logger, err := zap.NewDevelopment()
		if err != nil {
			panic(err)
		}
		return logger
	}
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	return logger
}
