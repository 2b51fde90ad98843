package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"spendsync/internal/backend"
	"spendsync/internal/engine"
	"spendsync/internal/storage"
)

// summaryLister is implemented by stores that can list users without
// loading whole accounts.
type summaryLister interface {
	ListAccountSummaries(ctx context.Context) ([]storage.AccountSummary, error)
}

type userRow struct {
	Phone       string    `json:"phone_number"`
	Linked      bool      `json:"linked"`
	State       string    `json:"state"`
	QueueLength int       `json:"queue_length"`
	LedgerMonth string    `json:"ledger_month,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewUsersCommand creates the users command.
func NewUsersCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List users with their conversation state and queue length",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := opts.openStore(ctx, backend.Needs{})
			if err != nil {
				return err
			}
			defer svc.Close()

			rows, err := listUsers(ctx, svc.Store)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to list users", err)
			}
			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), rows)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "PHONE\tLINKED\tSTATE\tQUEUE\tMONTH\tUPDATED")
			for _, r := range rows {
				fmt.Fprintf(tw, "%s\t%t\t%s\t%d\t%s\t%s\n",
					r.Phone, r.Linked, r.State, r.QueueLength, r.LedgerMonth,
					r.UpdatedAt.UTC().Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
}

func listUsers(ctx context.Context, store engine.Store) ([]userRow, error) {
	if sl, ok := store.(summaryLister); ok {
		summaries, err := sl.ListAccountSummaries(ctx)
		if err != nil {
			return nil, err
		}
		rows := make([]userRow, 0, len(summaries))
		for _, s := range summaries {
			state := "IDLE"
			if s.Awaiting {
				state = "AWAITING_REPLY"
			}
			rows = append(rows, userRow{
				Phone:       s.Phone,
				Linked:      s.Linked,
				State:       state,
				QueueLength: s.QueueLength,
				LedgerMonth: s.LedgerMonth,
				UpdatedAt:   s.UpdatedAt,
			})
		}
		return rows, nil
	}

	phones, err := store.ListPhones(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]userRow, 0, len(phones))
	for _, phone := range phones {
		acct, err := store.LoadAccount(ctx, phone)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", phone, err)
		}
		state := "IDLE"
		if !acct.State.IsIdle() {
			state = "AWAITING_REPLY"
		}
		rows = append(rows, userRow{
			Phone:       acct.Phone,
			Linked:      acct.Linked(),
			State:       state,
			QueueLength: acct.Queue.Len(),
			LedgerMonth: acct.Ledger.Month.String(),
			UpdatedAt:   acct.UpdatedAt,
		})
	}
	return rows, nil
}
