package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"spendsync/internal/backend"
	applog "spendsync/internal/log"
)

// ManualSyncReason tags sync requests queued by an operator.
const ManualSyncReason = "manual"

// SyncOptions holds flags for the sync command.
type SyncOptions struct {
	*RootOptions
	All bool
}

type syncQueued struct {
	Queued []string          `json:"queued"`
	Failed map[string]string `json:"failed,omitempty"`
}

// NewSyncCommand creates the sync command. Requests go through the broker so
// the daemon keeps syncs for one user serialized.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync [phone]",
		Short: "Queue a sync for one user or for everyone",
		Long: `Publish sync requests for the daemon to process.

Examples:
  spendctl sync +15550100
  spendctl sync --all`,
		Args: func(cmd *cobra.Command, args []string) error {
			switch {
			case opts.All && len(args) > 0:
				return fmt.Errorf("--all takes no phone argument")
			case !opts.All && len(args) != 1:
				return fmt.Errorf("expected a phone number or --all")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(opts, cmd, args)
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", false, "queue a sync for every user")

	return cmd
}

func runSync(opts *SyncOptions, cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	phones := args
	if opts.All {
		var err error
		if phones, err = allPhones(ctx, opts.RootOptions); err != nil {
			return err
		}
	}

	pub, closePub, err := opts.OpenPublisher(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to connect to broker", err)
	}
	defer func() {
		if closePub != nil {
			_ = closePub()
		}
	}()

	res := syncQueued{Queued: []string{}}
	for _, phone := range phones {
		if err := pub.PublishSyncRequest(ctx, phone, ManualSyncReason); err != nil {
			if res.Failed == nil {
				res.Failed = make(map[string]string)
			}
			res.Failed[phone] = err.Error()
			if opts.Logger != nil {
				opts.Logger.WarnContext(ctx, "Failed to queue sync", applog.FieldPhone, phone, applog.FieldError, err)
			}
			continue
		}
		res.Queued = append(res.Queued, phone)
	}

	if opts.Format == "json" {
		if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
			return err
		}
	} else {
		out := cmd.OutOrStdout()
		for _, phone := range res.Queued {
			fmt.Fprintf(out, "queued %s\n", phone)
		}
		for phone, msg := range res.Failed {
			fmt.Fprintf(out, "failed %s: %s\n", phone, msg)
		}
	}
	if len(res.Failed) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d sync requests failed", len(res.Failed), len(phones)))
	}
	return nil
}

func allPhones(ctx context.Context, opts *RootOptions) ([]string, error) {
	svc, err := opts.openStore(ctx, backend.Needs{})
	if err != nil {
		return nil, err
	}
	defer svc.Close()
	phones, err := svc.Store.ListPhones(ctx)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to list users", err)
	}
	return phones, nil
}
