package commands

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/shopspring/decimal"

	"smart-spend/internal/models"
)

var (
	bold   = color.New(color.Bold)
	title  = color.New(color.Bold, color.Underline)
	faint  = color.New(color.Faint)
	red    = color.New(color.FgRed, color.Bold)
	yellow = color.New(color.FgYellow, color.Bold)
	green  = color.New(color.FgGreen)
)

func money(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-₹" + d.Neg().StringFixed(2)
	}
	return "₹" + d.StringFixed(2)
}

func printSession(w io.Writer, verb string, sess *models.Session) {
	if sess == nil {
		return
	}
	_, _ = fmt.Fprintf(w, "%s as %s (user %s)\n", verb, bold.Sprint(sess.Email), sess.UserID)
}

// printSnapshot renders the summary and the forecast of one refresh.
func printSnapshot(w io.Writer, snap *models.Snapshot) {
	if snap == nil {
		_, _ = faint.Fprintln(w, "Dashboard unavailable, try `smartspend summary` again.")
		return
	}
	printSummary(w, &snap.Summary)
	_, _ = fmt.Fprintln(w)
	printForecast(w, &snap.Forecast)
}

func printSummary(w io.Writer, s *models.Summary) {
	heading := "This month"
	if s.Year > 0 && s.Month > 0 {
		heading = fmt.Sprintf("%d-%02d", s.Year, s.Month)
	}
	_, _ = title.Fprintln(w, heading)

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow("Spent", money(s.Total))
	if s.MonthlyBudget != nil {
		tbl.AddRow("Budget", money(*s.MonthlyBudget))
		remaining := green.Sprint(money(s.RemainingBudget))
		if s.IsOverBudget {
			remaining = red.Sprint(money(s.RemainingBudget))
		}
		tbl.AddRow("Remaining", remaining)
		tbl.AddRow("Used", s.BudgetUsagePercent.StringFixed(1)+"%")
	}
	_, _ = fmt.Fprintln(w, tbl)

	if alert := s.Alert(); alert != "" {
		c := yellow
		if s.IsOverBudget {
			c = red
		}
		_, _ = c.Fprintln(w, "! "+alert)
	}

	if len(s.Categories) == 0 {
		return
	}
	printAmounts(w, "Spent", s.Categories)
}

func printForecast(w io.Writer, f *models.Forecast) {
	_, _ = title.Fprintln(w, "Forecast")
	if f.Error != "" {
		_, _ = faint.Fprintln(w, f.Error)
	}
	if len(f.History) == 0 && len(f.Forecast) == 0 {
		_, _ = faint.Fprintln(w, "none")
		return
	}

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("Month"), bold.Sprint("Amount"), "")
	for _, p := range f.History {
		tbl.AddRow(p.Date, money(p.Amount), "")
	}
	for _, p := range f.Forecast {
		tbl.AddRow(p.Date, money(p.Amount), faint.Sprint("projected"))
	}
	tbl.RightAlign(1)
	_, _ = fmt.Fprintln(w, tbl)
}

func printGoals(w io.Writer, goals []models.Goal) {
	_, _ = title.Fprintln(w, "Goals")
	if len(goals) == 0 {
		_, _ = faint.Fprintln(w, "none")
		return
	}
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("Category"), bold.Sprint("Target"), bold.Sprint("Period"))
	for _, g := range goals {
		tbl.AddRow(g.Category, money(g.TargetAmount), g.Period)
	}
	tbl.RightAlign(1)
	_, _ = fmt.Fprintln(w, tbl)
}

func printHistory(w io.Writer, records []models.MonthlyRecord) {
	_, _ = title.Fprintln(w, "Monthly history")
	if len(records) == 0 {
		_, _ = faint.Fprintln(w, "none")
		return
	}
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("Month"), bold.Sprint("Spent"))
	for _, r := range records {
		tbl.AddRow(fmt.Sprintf("%s %d", r.MonthName, r.Year), money(r.TotalSpent))
	}
	tbl.RightAlign(1)
	_, _ = fmt.Fprintln(w, tbl)
}

// printMonth renders one stored month with its category breakdown.
func printMonth(w io.Writer, r *models.MonthlyRecord) {
	_, _ = title.Fprintf(w, "%s %d\n", r.MonthName, r.Year)
	_, _ = fmt.Fprintf(w, "Spent  %s\n", money(r.TotalSpent))
	if len(r.Categories) == 0 {
		_, _ = faint.Fprintln(w, "no expenses recorded")
		return
	}
	printAmounts(w, "Spent", r.Categories)
}

func printAmounts(w io.Writer, heading string, amounts map[string]decimal.Decimal) {
	names := make([]string, 0, len(amounts))
	for name := range amounts {
		names = append(names, name)
	}
	sort.Strings(names)

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("Category"), bold.Sprint(heading))
	for _, name := range names {
		tbl.AddRow(name, money(amounts[name]))
	}
	tbl.RightAlign(1)
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, tbl)
}

func printBudgetPlan(w io.Writer, p *models.BudgetPlan) {
	_, _ = title.Fprintln(w, "Budget")
	if p.Error != "" {
		_, _ = faint.Fprintln(w, p.Error)
		return
	}
	if len(p.SuggestedBudgets) == 0 {
		_, _ = fmt.Fprintln(w, p.Summary)
		return
	}

	names := make([]string, 0, len(p.OriginalBudgets))
	for name := range p.OriginalBudgets {
		names = append(names, name)
	}
	sort.Strings(names)

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("Category"), bold.Sprint("Spent"), bold.Sprint("Limit"), bold.Sprint("Suggested"))
	for _, name := range names {
		limit, next := p.OriginalBudgets[name], p.SuggestedBudgets[name]
		suggested := faint.Sprint(money(next))
		switch {
		case next.GreaterThan(limit):
			suggested = green.Sprint(money(next))
		case next.LessThan(limit):
			suggested = yellow.Sprint(money(next))
		}
		tbl.AddRow(name, money(p.CurrentSpending[name]), money(limit), suggested)
	}
	tbl.RightAlign(1)
	tbl.RightAlign(2)
	tbl.RightAlign(3)
	_, _ = fmt.Fprintln(w, tbl)
}
