package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/millwright/internal/export"
	"github.com/zulandar/millwright/internal/settings"
	"github.com/zulandar/millwright/internal/sweep"
)

func newSweepCmd() *cobra.Command {
	var (
		configPath string
		once       bool
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run the overdue sweep",
		Long:  "Runs the overdue check on the configured cron schedule, or once with --once.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd, configPath, once)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "millwright.yaml", "path to Millwright config file")
	cmd.Flags().BoolVar(&once, "once", false, "run a single pass and exit")
	return cmd
}

func runSweep(cmd *cobra.Command, configPath string, once bool) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	st := settings.NewStore(gormDB)

	sink, err := buildSink(cfg)
	if err != nil {
		return err
	}
	if sink != nil {
		defer sink.Close()
	}

	daemon, err := sweep.NewDaemon(sweep.Opts{
		DB:             gormDB,
		Settings:       st,
		Exporter:       export.New(st),
		Sink:           sink,
		Cron:           cfg.Sweep.Cron,
		AssigneeDedupe: time.Duration(cfg.Sweep.AssigneeDedupeMinutes) * time.Minute,
		AdminDedupe:    time.Duration(cfg.Sweep.AdminDedupeHours) * time.Hour,
		Out:            cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}

	if once {
		res, err := daemon.Check(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Done: %d overdue, %d notified, %d pushes\n",
			res.Overdue, res.Notified, res.Pushed)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	return daemon.Run(ctx)
}
