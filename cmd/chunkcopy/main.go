package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-kit/kit/log"
	"github.com/spf13/cobra"

	"github.com/ib-77/chunkflow/internal/config"
	"github.com/ib-77/chunkflow/internal/logger"
)

type app struct {
	cfgPath  string
	logLevel string

	cfg    *config.Config
	logger log.Logger
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "chunkcopy",
		Short:         "Copy files chunk by chunk through a backpressure-aware transfer loop",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.cfgPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Log.Level = a.logLevel
			}
			a.cfg = cfg
			a.logger = logger.New(cmd.ErrOrStderr(), cfg.Log.Level)
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "debug, info, warn, error or none")

	root.AddCommand(newCopyCmd(a))
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(&app{}).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "chunkcopy:", err)
		os.Exit(1)
	}
}
