// Package nlp extracts expenses from chat text and receipt text with regular
// expressions and keyword tables.
package nlp

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MaxExpenseAmount bounds a single recorded expense.
var MaxExpenseAmount = decimal.NewFromInt(100_000)

var (
	amountWithUnitRegex = regexp.MustCompile(`(?i)(?:₹|rs\.?|inr|\$)\s*(\d[\d,]*(?:\.\d+)?)|(\d[\d,]*(?:\.\d+)?)\s*(?:₹|rs\b|rupees?|inr\b)`)
	amountRegex         = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)
	dateISORegex        = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	dateSlashRegex      = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{4})\b`)
	merchantRegex       = regexp.MustCompile(`\b(?:at|from|in)\s+([A-Z][\w'-]*(?:\s+[A-Z][\w'-]*)*)`)
)

type ParsedExpense struct {
	Amount   decimal.Decimal
	Category string
	Merchant string
	Date     time.Time
}

// ParseExpense reads an amount, category, merchant and date out of free
// text. It reports false when the text names no positive amount.
func ParseExpense(text string, now time.Time) (*ParsedExpense, bool) {
	date, rest := parseDate(text, now)
	amount, ok := parseAmount(rest)
	if !ok {
		return nil, false
	}
	return &ParsedExpense{
		Amount:   amount,
		Category: ClassifyCategory(text),
		Merchant: parseMerchant(text),
		Date:     date,
	}, true
}

func parseAmount(text string) (decimal.Decimal, bool) {
	if matches := amountWithUnitRegex.FindStringSubmatch(text); len(matches) > 2 {
		value := matches[1]
		if value == "" {
			value = matches[2]
		}
		if amount, ok := parseNumber(value); ok {
			return amount, true
		}
	}
	for _, match := range amountRegex.FindAllString(text, -1) {
		if amount, ok := parseNumber(match); ok {
			return amount, true
		}
	}
	return decimal.Zero, false
}

func parseNumber(value string) (decimal.Decimal, bool) {
	amount, err := decimal.NewFromString(strings.ReplaceAll(value, ",", ""))
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, false
	}
	return amount, true
}

// parseDate returns the date the text refers to, defaulting to now, and the
// text with any explicit date removed.
func parseDate(text string, now time.Time) (time.Time, string) {
	if loc := dateISORegex.FindStringSubmatchIndex(text); loc != nil {
		year, _ := strconv.Atoi(text[loc[2]:loc[3]])
		month, _ := strconv.Atoi(text[loc[4]:loc[5]])
		day, _ := strconv.Atoi(text[loc[6]:loc[7]])
		if t, ok := validDate(year, month, day, now); ok {
			return t, text[:loc[0]] + text[loc[1]:]
		}
	}

	if loc := dateSlashRegex.FindStringSubmatchIndex(text); loc != nil {
		day, _ := strconv.Atoi(text[loc[2]:loc[3]])
		month, _ := strconv.Atoi(text[loc[4]:loc[5]])
		year, _ := strconv.Atoi(text[loc[6]:loc[7]])
		if t, ok := validDate(year, month, day, now); ok {
			return t, text[:loc[0]] + text[loc[1]:]
		}
	}

	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "yesterday"):
		return now.AddDate(0, 0, -1), text
	case strings.Contains(lower, "last week"):
		return now.AddDate(0, 0, -7), text
	}
	return now, text
}

func validDate(year, month, day int, now time.Time) (time.Time, bool) {
	if year < 2000 || year > now.Year()+1 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, now.Hour(), now.Minute(), now.Second(), 0, now.Location())
	if t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

func parseMerchant(text string) string {
	if matches := merchantRegex.FindStringSubmatch(text); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}
	return ""
}

var categoryKeywords = []struct {
	name     string
	keywords []string
}{
	{"Food", []string{"food", "lunch", "dinner", "breakfast", "coffee", "restaurant", "grocer", "meal", "swiggy", "zomato"}},
	{"Transport", []string{"bus", "taxi", "uber", "transport", "metro", "train", "ola", "fuel", "petrol"}},
	{"Shopping", []string{"shopping", "clothes", "mall", "store", "amazon", "flipkart", "myntra"}},
	{"Bills", []string{"bill", "electricity", "water", "internet", "rent", "phone", "gas"}},
	{"Entertainment", []string{"movie", "cinema", "game", "entertainment", "netflix", "concert"}},
}

// ClassifyCategory maps text onto one of the fixed spending categories.
func ClassifyCategory(text string) string {
	lower := strings.ToLower(text)
	for _, c := range categoryKeywords {
		for _, kw := range c.keywords {
			if strings.Contains(lower, kw) {
				return c.name
			}
		}
	}
	return "Other"
}

// IsSummaryQuery reports whether the text asks about spending so far.
func IsSummaryQuery(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range []string{"how much", "summary", "total spending", "budget", "remaining"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
