package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"docflow/internal/cli"
	"docflow/internal/config"
	"docflow/internal/logging"
	"docflow/internal/tui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "docflow:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	cfg, err := config.LoadClient(config.ClientConfigPath())
	if err != nil {
		return err
	}
	logger := logging.NewWithWriter(os.Stderr, "docflow", cfg.LogLevel, nil)

	app, err := cli.New(cfg, os.Stdout, logger,
		cli.WithInput(os.Stdin),
		cli.WithBrowser(func(ctx context.Context, a *cli.App) error {
			return tui.Run(ctx, a.Docs, a.Gateway, a.Session)
		}),
	)
	if err != nil {
		return err
	}
	defer app.Close()

	return app.Run(ctx, args)
}
