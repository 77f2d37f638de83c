package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/millwright/internal/config"
	"github.com/zulandar/millwright/internal/export"
	"github.com/zulandar/millwright/internal/notify"
	"github.com/zulandar/millwright/internal/notify/discord"
	"github.com/zulandar/millwright/internal/notify/slack"
	"github.com/zulandar/millwright/internal/server"
	"github.com/zulandar/millwright/internal/settings"
	"github.com/zulandar/millwright/internal/ticket"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Millwright API server",
		Long:  "Serves the ticket, machine, alert, and settings API over HTTP.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "millwright.yaml", "path to Millwright config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides config)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	if port == 0 {
		port = cfg.Server.Port
	}

	st := settings.NewStore(gormDB)
	exporter := export.New(st)

	sink, err := buildSink(cfg)
	if err != nil {
		return err
	}
	if sink != nil {
		defer sink.Close()
	}

	dispatcher, err := notify.NewDispatcher(notify.Opts{
		DB:       gormDB,
		Sink:     sink,
		Exporter: exporter,
	})
	if err != nil {
		return err
	}

	tickets, err := ticket.NewService(ticket.Opts{
		DB:             gormDB,
		Notifier:       dispatcher,
		DebounceWindow: time.Duration(cfg.Tickets.DebounceWindowSeconds) * time.Second,
	})
	if err != nil {
		return err
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

	return server.Start(ctx, server.StartOpts{
		DB:       gormDB,
		Tickets:  tickets,
		Settings: st,
		Port:     port,
		Out:      cmd.OutOrStdout(),
	})
}

// buildSink creates the configured push sink, or nil when pushes are disabled.
func buildSink(cfg *config.Config) (notify.Sink, error) {
	switch cfg.Notify.Platform {
	case "":
		return nil, nil
	case "slack":
		return slack.New(slack.Opts{
			BotToken: cfg.Notify.Slack.BotToken,
			Channel:  cfg.Notify.Slack.Channel,
		})
	case "discord":
		return discord.New(discord.Opts{
			BotToken: cfg.Notify.Discord.BotToken,
			Channel:  cfg.Notify.Discord.Channel,
		})
	default:
		return nil, fmt.Errorf("unsupported notify platform %q", cfg.Notify.Platform)
	}
}
