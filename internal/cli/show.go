package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"spendsync/internal/backend"
	"spendsync/internal/core"
	"spendsync/internal/engine"
	"spendsync/internal/sheets"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Archive bool
}

type ledgerLine struct {
	Category string `json:"category"`
	Limit    string `json:"limit"`
	Spent    string `json:"spent"`
}

type queueLine struct {
	ID       string `json:"id"`
	Merchant string `json:"merchant,omitempty"`
	Amount   string `json:"amount,omitempty"`
	Date     string `json:"date,omitempty"`
}

type archiveLine struct {
	Month    string `json:"month"`
	Category string `json:"category"`
	Limit    string `json:"limit"`
	Spent    string `json:"spent"`
}

type accountView struct {
	Phone   string        `json:"phone_number"`
	Linked  bool          `json:"linked"`
	State   string        `json:"state"`
	Month   string        `json:"month,omitempty"`
	Ledger  []ledgerLine  `json:"ledger"`
	Queue   []queueLine   `json:"queue"`
	Archive []archiveLine `json:"archive,omitempty"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <phone>",
		Short: "Show a user's ledger and reconciliation queue",
		Long: `Show one user's current month ledger, conversation state and queue.

Examples:
  spendctl show +15550100
  spendctl show +15550100 --archive
  spendctl show +15550100 --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, cmd, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.Archive, "archive", false, "include archived months")

	return cmd
}

func runShow(opts *ShowOptions, cmd *cobra.Command, phone string) error {
	ctx := cmd.Context()
	svc, err := opts.openStore(ctx, backend.Needs{Archive: opts.Archive})
	if err != nil {
		return err
	}
	defer svc.Close()

	acct, err := svc.Store.LoadAccount(ctx, phone)
	if errors.Is(err, engine.ErrNotFound) {
		return NewExitError(ExitFailure, fmt.Sprintf("no user %s", phone))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load account", err)
	}
	view := viewAccount(acct)

	if opts.Archive {
		if svc.Archive == nil {
			return NewExitError(ExitCommandError, "ledger archive is not configured")
		}
		rows, err := svc.Archive.ListArchive(ctx, phone)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read archive", err)
		}
		view.Archive = archiveLines(rows)
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), view)
	}
	return printAccount(cmd.OutOrStdout(), view)
}

func viewAccount(acct *core.Account) accountView {
	view := accountView{
		Phone:  acct.Phone,
		Linked: acct.Linked(),
		State:  acct.State.String(),
		Month:  acct.Ledger.Month.String(),
		Ledger: []ledgerLine{},
		Queue:  []queueLine{},
	}
	for _, c := range acct.Ledger.Categories() {
		e := acct.Ledger.Entry(c)
		view.Ledger = append(view.Ledger, ledgerLine{
			Category: c.String(),
			Limit:    e.Limit.StringFixed(2),
			Spent:    e.Spent.StringFixed(2),
		})
	}
	for _, it := range acct.Queue.Items() {
		line := queueLine{ID: it.ID}
		if it.Tx != nil {
			line.Merchant = it.Tx.Merchant
			line.Amount = it.Tx.Amount.StringFixed(2)
			line.Date = it.Tx.Date.Format(core.DateLayout)
		}
		view.Queue = append(view.Queue, line)
	}
	return view
}

func archiveLines(rows []sheets.ArchivedRow) []archiveLine {
	out := make([]archiveLine, 0, len(rows))
	for _, r := range rows {
		out = append(out, archiveLine{
			Month:    r.Month.String(),
			Category: r.Category.String(),
			Limit:    r.Limit.StringFixed(2),
			Spent:    r.Spent.StringFixed(2),
		})
	}
	return out
}

func printAccount(w io.Writer, v accountView) error {
	fmt.Fprintf(w, "User:   %s\n", v.Phone)
	fmt.Fprintf(w, "Linked: %t\n", v.Linked)
	fmt.Fprintf(w, "State:  %s\n", v.State)
	if v.Month != "" {
		fmt.Fprintf(w, "Month:  %s\n", v.Month)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\nCATEGORY\tLIMIT\tSPENT")
	for _, l := range v.Ledger {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", l.Category, l.Limit, l.Spent)
	}
	fmt.Fprintf(tw, "\nQUEUE (%d)\t\t\t\n", len(v.Queue))
	for _, q := range v.Queue {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", q.ID, q.Date, q.Merchant, q.Amount)
	}
	if v.Archive != nil {
		fmt.Fprintln(tw, "\nMONTH\tCATEGORY\tLIMIT\tSPENT")
		for _, a := range v.Archive {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.Month, a.Category, a.Limit, a.Spent)
		}
	}
	return tw.Flush()
}
