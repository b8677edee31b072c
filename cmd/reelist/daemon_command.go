package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"reelist/internal/engine"
	"reelist/internal/logging"
	"reelist/internal/remote"
	"reelist/internal/store"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the background sync loop in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemonProcess(cmd.Context(), ctx)
		},
	}
}

func runDaemonProcess(cmdCtx context.Context, ctx *commandContext) error {
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("open local store", logging.Error(err))
		return err
	}
	defer st.Close()

	client, err := remote.New(cfg)
	if err != nil {
		return fmt.Errorf("remote client: %w", err)
	}

	eng := engine.New(cfg, st, client, logger)
	runner, err := engine.NewRunner(cfg, eng, logger)
	if err != nil {
		return fmt.Errorf("create runner: %w", err)
	}

	if err := runner.Start(signalCtx); err != nil {
		return err
	}
	defer runner.Stop()

	<-signalCtx.Done()
	return nil
}
