package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"bookshare/internal/triggers"
)

var remindersCmd = &cobra.Command{
	Use:   "reminders",
	Short: "Due-date reminder jobs",
}

func triggerConfig() (triggers.Config, error) {
	loc, err := current.cfg.Location()
	if err != nil {
		return triggers.Config{}, err
	}
	return triggers.Config{
		LoanPeriod: current.cfg.LoanPeriod,
		Location:   loc,
		Logger:     current.logger,
	}, nil
}

var runRemindersCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the daily due-tomorrow and overdue sweep now",
	Long: `Scans every approved request with a due date and writes due-tomorrow and
overdue notifications. Running it twice on the same day writes the
notifications twice, same as the scheduled job.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := triggerConfig()
		if err != nil {
			return err
		}

		summary, err := triggers.NewDailyReminders(current.store, cfg).Run(cmd.Context())
		if err != nil {
			return fmt.Errorf("daily reminders: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Scanned %d approved requests\n", summary.Scanned)
		fmt.Fprintf(out, "Due tomorrow: %d\n", summary.DueTomorrow)
		fmt.Fprintf(out, "Overdue: %d\n", summary.Overdue)
		return nil
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Stamp due dates on approved requests that never got one",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := triggerConfig()
		if err != nil {
			return err
		}

		n, err := triggers.NewDueDateTrigger(current.store, cfg).Reconcile(cmd.Context())
		if err != nil {
			return fmt.Errorf("reconcile: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Stamped %d requests\n", n)
		return nil
	},
}

func init() {
	remindersCmd.AddCommand(runRemindersCmd, reconcileCmd)
}
