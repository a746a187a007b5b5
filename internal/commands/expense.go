package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("amount must be positive, got %s", s)
	}
	return d, nil
}

func addExpense(topLevel *cobra.Command, e *env) {
	var description, merchant string

	expense := &cobra.Command{
		Use:   "expense",
		Short: "manage expenses",
	}

	add := &cobra.Command{
		Use:   "add AMOUNT CATEGORY",
		Short: "record an expense and print the refreshed dashboard",
		Example: `
smartspend expense add 250 Food --merchant "Cafe Coffee Day"
`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[0])
			if err != nil {
				return err
			}
			ctrl, err := e.restored()
			if err != nil {
				return err
			}
			defer ctrl.Close()

			saved, err := ctrl.AddQuickExpense(cmd.Context(), amount, args[1], description, merchant)
			if err != nil {
				return err
			}
			ctrl.Wait()

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Added %s for %s\n", money(saved.Amount), bold.Sprint(saved.Category))
			if saved.Warning != "" {
				_, _ = yellow.Fprintln(out, "! "+saved.Warning)
			}
			_, _ = fmt.Fprintln(out)
			printSnapshot(out, ctrl.Snapshot())
			return nil
		},
	}
	add.Flags().StringVar(&description, "description", "", "Free text description.")
	add.Flags().StringVar(&merchant, "merchant", "", "Where the money was spent.")

	expense.AddCommand(add)
	topLevel.AddCommand(expense)
}

func addGoal(topLevel *cobra.Command, e *env) {
	var period string

	goal := &cobra.Command{
		Use:   "goal",
		Short: "manage spending goals",
	}

	set := &cobra.Command{
		Use:   "set CATEGORY TARGET",
		Short: "create or replace a goal for a category",
		Example: `
smartspend goal set Food 5000
smartspend goal set Transport 800 --period weekly
`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			ctrl, err := e.restored()
			if err != nil {
				return err
			}
			defer ctrl.Close()

			saved, err := ctrl.SaveGoal(cmd.Context(), args[0], target, period)
			if err != nil {
				return err
			}
			ctrl.Wait()

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Goal saved: %s %s %s\n\n", bold.Sprint(saved.Category), money(saved.TargetAmount), saved.Period)
			printSnapshot(out, ctrl.Snapshot())
			return nil
		},
	}
	set.Flags().StringVar(&period, "period", "monthly", "monthly or weekly.")

	list := &cobra.Command{
		Use:   "list",
		Short: "list goals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := e.restored()
			if err != nil {
				return err
			}
			sess := ctrl.Session()
			ctrl.Close()

			goals, err := e.client().ListGoals(cmd.Context(), sess.UserID)
			if err != nil {
				return err
			}
			printGoals(cmd.OutOrStdout(), goals)
			return nil
		},
	}

	goal.AddCommand(set, list)
	topLevel.AddCommand(goal)
}

func addUpload(topLevel *cobra.Command, e *env) {
	upload := &cobra.Command{
		Use:   "upload",
		Short: "upload receipts and bank statements",
	}

	receipt := &cobra.Command{
		Use:   "receipt FILE",
		Short: "extract an expense from a receipt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open receipt: %w", err)
			}
			defer f.Close()

			ctrl, err := e.restored()
			if err != nil {
				return err
			}
			defer ctrl.Close()

			r, err := ctrl.UploadReceipt(cmd.Context(), filepath.Base(args[0]), f)
			if err != nil {
				return err
			}
			ctrl.Wait()

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Receipt: %s for %s", money(r.Amount), bold.Sprint(r.Category))
			if r.Merchant != "" {
				_, _ = fmt.Fprintf(out, " at %s", r.Merchant)
			}
			_, _ = fmt.Fprint(out, "\n\n")
			printSnapshot(out, ctrl.Snapshot())
			return nil
		},
	}

	csv := &cobra.Command{
		Use:   "csv FILE",
		Short: "import expenses from a date,description,amount CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open csv: %w", err)
			}
			defer f.Close()

			ctrl, err := e.restored()
			if err != nil {
				return err
			}
			defer ctrl.Close()

			result, err := ctrl.ImportCSV(cmd.Context(), filepath.Base(args[0]), f)
			if err != nil {
				return err
			}
			ctrl.Wait()

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Imported %d rows, skipped %d\n\n", result.Imported, result.Skipped)
			printSnapshot(out, ctrl.Snapshot())
			return nil
		},
	}

	upload.AddCommand(receipt, csv)
	topLevel.AddCommand(upload)
}
