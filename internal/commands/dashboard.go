package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func addSummary(topLevel *cobra.Command, e *env) {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "print this month's spending and the forecast",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := e.restored()
			if err != nil {
				return err
			}
			defer ctrl.Close()

			snap, err := ctrl.RefreshNow(cmd.Context())
			if err != nil {
				return err
			}
			printSnapshot(cmd.OutOrStdout(), snap)
			return nil
		},
	}

	topLevel.AddCommand(cmd)
}

func addHistory(topLevel *cobra.Command, e *env) {
	var year, month int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "print stored monthly totals, newest first",
		Example: `
smartspend history
smartspend history --year 2025
smartspend history --year 2025 --month 11
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if month != 0 && (month < 1 || month > 12) {
				return fmt.Errorf("month must be between 1 and 12, got %d", month)
			}
			ctrl, err := e.restored()
			if err != nil {
				return err
			}
			sess := ctrl.Session()
			ctrl.Close()

			if month != 0 {
				if year == 0 {
					year = time.Now().Year()
				}
				record, err := e.client().MonthlyData(cmd.Context(), sess.UserID, year, month)
				if err != nil {
					return err
				}
				printMonth(cmd.OutOrStdout(), record)
				return nil
			}

			records, err := e.client().MonthlyHistory(cmd.Context(), sess.UserID, year)
			if err != nil {
				return err
			}
			printHistory(cmd.OutOrStdout(), records)
			return nil
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "Only show this year.")
	cmd.Flags().IntVar(&month, "month", 0, "Show one month with its categories (defaults to the current year).")
	topLevel.AddCommand(cmd)
}

func addBudget(topLevel *cobra.Command, e *env) {
	budget := &cobra.Command{
		Use:   "budget",
		Short: "inspect per-category budgets",
	}

	optimize := &cobra.Command{
		Use:   "optimize",
		Short: "suggest moving surplus from under-spent categories to over-spent ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := e.restored()
			if err != nil {
				return err
			}
			sess := ctrl.Session()
			ctrl.Close()

			plan, err := e.client().OptimizeBudget(cmd.Context(), sess.UserID)
			if err != nil {
				return err
			}
			printBudgetPlan(cmd.OutOrStdout(), plan)
			return nil
		},
	}

	budget.AddCommand(optimize)
	topLevel.AddCommand(budget)
}
