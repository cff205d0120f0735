package main

import (
	"context"
	"flag"

	"github.com/lintang-b-s/graphextract/pkg/config"
	"github.com/lintang-b-s/graphextract/pkg/logger"
	"github.com/lintang-b-s/graphextract/pkg/pipeline"
	"github.com/lintang-b-s/graphextract/pkg/profile"
	"go.uber.org/zap"
)

var (
	inputPath      = flag.String("input", "", "source .osm.pbf file")
	outputBasePath = flag.String("output", "", "output base path for the .osrm.* artifact family")
	configPath     = flag.String("config", "", "optional viper config file (yaml/json/toml) overriding the defaults")
	verbose        = flag.Bool("verbose", false, "use a human-readable console logger instead of the production JSON one")
)

func main() {
	flag.Parse()

	var log *zap.Logger
	var err error
	if *verbose {
		log, err = logger.NewDevelopment()
	} else {
		log, err = logger.New()
	}
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg := config.Default()
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err != nil {
			panic(err)
		}
	}
	if *inputPath != "" {
		cfg.InputPath = *inputPath
	}
	if *outputBasePath != "" {
		cfg.OutputBasePath = *outputBasePath
	}
	if cfg.InputPath == "" {
		log.Sugar().Fatal("cmd/extract: -input (or config.input_path) is required")
	}

	factory := profile.IsolatedFactory(func() profile.Profile {
		return profile.NewDefaultProfile()
	})

	if err := pipeline.Run(context.Background(), log, cfg, factory); err != nil {
		log.Sugar().Fatalf("extraction failed: %v", err)
	}
}
