package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"nftbot/internal/app"
	"nftbot/internal/config"
)

func main() {
	var (
		cfgPath string
		envFile string
		dryRun  bool
	)
	flag.StringVar(&cfgPath, "config", "", "optional config file (.json, .yaml, .yml)")
	flag.StringVar(&envFile, "env-file", config.DefaultEnvFile, "dotenv file to read; \"-\" disables")
	flag.BoolVar(&dryRun, "dry-run", false, "log messages instead of sending them; nothing is recorded")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfgPath, envFile, dryRun); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfgPath, envFile string, dryRun bool) error {
	cfg, err := config.Load(config.Options{Path: cfgPath, EnvFile: envFile})
	if err != nil {
		return err
	}
	if dryRun {
		cfg.DryRun = true
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	_, err = a.Run(ctx)
	return err
}
