package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tair/catalog-sync/internal/catalog"
	"github.com/tair/catalog-sync/internal/catalog/domain"
	"github.com/tair/catalog-sync/internal/catalog/usecase/command"
	"github.com/tair/catalog-sync/internal/config"
	"github.com/tair/catalog-sync/kafka"
	"github.com/tair/catalog-sync/pkg/logger"
)

// app carries what the commands need; tests swap the loaders
type app struct {
	loadConfig func() (*config.Config, error)
	open       func(ctx context.Context, cfg *config.Config, withKafka bool) (*catalog.Infrastructure, error)
	newService func(deps catalog.Dependencies) (*catalog.Service, error)
}

func defaultApp() *app {
	return &app{
		loadConfig: config.Load,
		open:       catalog.OpenInfrastructure,
		newService: catalog.InitializeService,
	}
}

type cliOptions struct {
	logLevel string
	cfg      *config.Config
}

func newRootCommand(a *app) *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:           "catalogctl",
		Short:         "Operate the catalog store: migrate, sync providers, inspect stock",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			opts.cfg = cfg

			// stdout is reserved for command output
			logger.InitWriter(cfg.App.Name+"-ctl", cfg.App.IsDevelopment(), cmd.ErrOrStderr())
			logger.SetLevel(opts.logLevel)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(
		newMigrateCmd(a, opts),
		newSyncCmd(a, opts),
		newStatsCmd(a, opts),
		newRequestSyncCmd(a, opts),
	)
	return root
}

func newMigrateCmd(a *app, opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the catalog tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			infra, err := a.open(cmd.Context(), opts.cfg, false)
			if err != nil {
				return err
			}
			defer infra.Close()

			if err := infra.Migrate(); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "catalog tables migrated")
			return nil
		},
	}
}

func newSyncCmd(a *app, opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync <provider>",
		Short: "Synchronize one provider and print the result as JSON",
		Long:  "Synchronize one provider and print the result as JSON. Exits non-zero when the sync fails.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			infra, err := a.open(cmd.Context(), opts.cfg, true)
			if err != nil {
				return err
			}
			defer infra.Close()

			svc, err := a.newService(infra.Dependencies(opts.cfg))
			if err != nil {
				return err
			}

			result, err := svc.Sync.Handle(cmd.Context(), command.RunSyncCommand{
				ProviderID:  args[0],
				TriggeredBy: "catalogctl",
			})
			if result == nil {
				return exitError{code: 2, message: err.Error()}
			}
			if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			if result.Status == domain.SyncFailed {
				return exitSilent(1)
			}
			return nil
		},
	}
}

func newStatsCmd(a *app, opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print catalog stock statistics as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			infra, err := a.open(cmd.Context(), opts.cfg, false)
			if err != nil {
				return err
			}
			defer infra.Close()

			svc, err := a.newService(infra.Dependencies(opts.cfg))
			if err != nil {
				return err
			}
			stats, err := svc.Stats.Handle(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), stats)
		},
	}
}

func newRequestSyncCmd(a *app, opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "request-sync <provider>",
		Short: "Ask running catalog services to sync a provider via Kafka",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.cfg.Kafka.KafkaEnabled() {
				return exitError{code: 2, message: "KAFKA_BROKERS is not set"}
			}
			publisher, err := kafka.NewPublisher(opts.cfg.Kafka.Brokers, kafka.Topics{
				Synced:        opts.cfg.Kafka.SyncedTopic,
				SyncRequested: opts.cfg.Kafka.RequestTopic,
			})
			if err != nil {
				return err
			}
			defer publisher.Close()

			eventID, err := publisher.PublishSyncRequested(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]string{
				"eventId":    eventID,
				"providerId": args[0],
			})
		},
	}
}

func writeJSON(w io.Writer, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

