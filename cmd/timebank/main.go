// Command timebank runs the month-end jobs and reports without the bot.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"timebank/internal/app"
	"timebank/internal/config"
	"timebank/internal/logging"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "timebank",
		Short:         "Banked hours administration",
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&envFile, "env", ".env", "Env file to load before the environment")

	withApp := func(run func(ctx context.Context, a *app.App, out io.Writer, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}
			if err := logging.Configure(cfg.LogLevel, cfg.LogFormat); err != nil {
				return err
			}

			a, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			a.Start(cmd.Context())
			defer func() {
				if err := a.Close(); err != nil {
					logrus.WithError(err).Warn("Failed to close application")
				}
			}()

			return run(cmd.Context(), a, cmd.OutOrStdout(), args)
		}
	}

	root.AddCommand(
		newCloseMonthCmd(withApp),
		newSummaryCmd(withApp),
		newBalanceCmd(withApp),
		newPruneCmd(withApp),
		newHolidaysCmd(withApp),
	)
	return root
}

type runner = func(run func(ctx context.Context, a *app.App, out io.Writer, args []string) error) func(*cobra.Command, []string) error

func newCloseMonthCmd(withApp runner) *cobra.Command {
	var userID uint

	cmd := &cobra.Command{
		Use:   "close-month [YYYY-MM]",
		Short: "Close a month into banked hours (previous month by default)",
		Args:  cobra.MaximumNArgs(1),
	}
	cmd.Flags().UintVar(&userID, "user", 0, "Close only this user")

	cmd.RunE = withApp(func(ctx context.Context, a *app.App, out io.Writer, args []string) error {
		year, month, err := periodArg(args, time.Now().In(a.Config.Location()).AddDate(0, -1, 0))
		if err != nil {
			return err
		}

		if userID != 0 {
			result, err := a.Bank.CloseMonth(ctx, userID, year, month)
			if err != nil {
				return err
			}
			return printJSON(out, result)
		}

		batch, err := a.Bank.CloseMonthForAllUsers(ctx, year, month)
		if err != nil {
			return err
		}
		if err := printJSON(out, batch); err != nil {
			return err
		}
		if batch.Failed > 0 {
			for _, f := range batch.Failures() {
				fmt.Fprintf(out, "user %d: %v\n", f.UserID, f.Err)
			}
			return fmt.Errorf("%d users failed", batch.Failed)
		}
		return nil
	})
	return cmd
}

func newSummaryCmd(withApp runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary <user> [YYYY-MM]",
		Short: "Print the monthly summary of a user",
		Args:  cobra.RangeArgs(1, 2),
	}

	cmd.RunE = withApp(func(ctx context.Context, a *app.App, out io.Writer, args []string) error {
		userID, err := parseUser(args[0])
		if err != nil {
			return err
		}
		year, month, err := periodArg(args[1:], time.Now().In(a.Config.Location()))
		if err != nil {
			return err
		}

		summary, err := a.Summaries.MonthlySummary(ctx, userID, year, month)
		if err != nil {
			return err
		}
		return printJSON(out, summary)
	})
	return cmd
}

func newBalanceCmd(withApp runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance <user> [YYYY-MM]",
		Short: "Print the banked hours carried into a month",
		Args:  cobra.RangeArgs(1, 2),
	}

	cmd.RunE = withApp(func(ctx context.Context, a *app.App, out io.Writer, args []string) error {
		userID, err := parseUser(args[0])
		if err != nil {
			return err
		}
		year, month, err := periodArg(args[1:], time.Now().In(a.Config.Location()))
		if err != nil {
			return err
		}

		minutes, err := a.Bank.AccumulatedBalance(ctx, userID, year, month)
		if err != nil {
			return err
		}
		entries, err := a.Bank.History(ctx, userID)
		if err != nil {
			return err
		}

		return printJSON(out, map[string]interface{}{
			"user_id":     userID,
			"year_month":  fmt.Sprintf("%04d-%02d", year, month),
			"accumulated": minutes,
			"entries":     entries,
		})
	})
	return cmd
}

func newPruneCmd(withApp runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Apply banked hours retention to every user",
		Args:  cobra.NoArgs,
	}

	cmd.RunE = withApp(func(ctx context.Context, a *app.App, out io.Writer, _ []string) error {
		deleted, err := a.Bank.PruneAll(ctx)
		fmt.Fprintf(out, "deleted %d entries\n", deleted)
		return err
	})
	return cmd
}

func newHolidaysCmd(withApp runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "holidays <file>",
		Short: "Replace the stored holidays with a calendar file",
		Args:  cobra.ExactArgs(1),
	}

	cmd.RunE = withApp(func(ctx context.Context, a *app.App, out io.Writer, args []string) error {
		n, err := a.Dates.LoadFromJSON(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "loaded %d holidays\n", n)
		return nil
	})
	return cmd
}

func printJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
