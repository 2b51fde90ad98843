package cli

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"spendsync/internal/backend"
	"spendsync/internal/config"
)

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Publisher queues a sync request for the daemon.
type Publisher interface {
	PublishSyncRequest(ctx context.Context, phone, reason string) error
}

// RootOptions holds global flags and the adapters commands open.
type RootOptions struct {
	Format string

	Config *config.Config
	Logger *slog.Logger

	// OpenServices builds the store and the requested adapters.
	OpenServices func(ctx context.Context, needs backend.Needs) (*backend.Services, error)
	// OpenPublisher connects to the broker. The returned func closes it.
	OpenPublisher func(ctx context.Context) (Publisher, func() error, error)
}

// NewRootOptions wires commands to the backends described by cfg.
func NewRootOptions(cfg *config.Config, logger *slog.Logger) *RootOptions {
	factory := backend.NewFactory(logger)
	opts := &RootOptions{Config: cfg, Logger: logger}

	opts.OpenServices = func(ctx context.Context, needs backend.Needs) (*backend.Services, error) {
		backendCfg, err := backend.FromAppConfig(cfg)
		if err != nil {
			return nil, err
		}
		return backend.CreateServices(ctx, factory, backendCfg, needs)
	}
	opts.OpenPublisher = func(ctx context.Context) (Publisher, func() error, error) {
		if !cfg.AMQPEnabled() {
			return nil, nil, fmt.Errorf("AMQP_URL is not set")
		}
		backendCfg, err := backend.FromAppConfig(cfg)
		if err != nil {
			return nil, nil, err
		}
		client, err := factory.CreateBroker(backendCfg)
		if err != nil {
			return nil, nil, err
		}
		return client, client.Close, nil
	}
	return opts
}

// NewRootCommand creates the root command for spendctl.
func NewRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spendctl",
		Short: "Operate a spendsync deployment",
		Long:  "Inspect users, queue syncs and migrate the spendsync database.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewUsersCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))

	return cmd
}

func (o *RootOptions) openStore(ctx context.Context, needs backend.Needs) (*backend.Services, error) {
	svc, err := o.OpenServices(ctx, needs)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open store", err)
	}
	return svc, nil
}
