package nlp

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	receiptTotalPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:grand\s+total|total\s+amount|amount\s+due|net\s+amount)\s*[:\s]*(?:₹|rs\.?|inr)?\s*([0-9,]+\.?\d*)`),
		regexp.MustCompile(`(?i)\btotal\b\s*[:\s]*(?:₹|rs\.?|inr)?\s*([0-9,]+\.?\d*)`),
		regexp.MustCompile(`(?i)(?:₹|rs\.?|inr)\s*([0-9,]+\.[0-9]{2})`),
	}
	receiptMoneyRegex = regexp.MustCompile(`([0-9,]+\.[0-9]{2})`)
)

// ParseReceipt extracts an expense from the text of a receipt. The merchant
// is taken from the first non-empty line.
func ParseReceipt(text string, now time.Time) (*ParsedExpense, bool) {
	date, rest := parseDate(text, now)

	amount, ok := receiptAmount(rest)
	if !ok {
		return nil, false
	}

	return &ParsedExpense{
		Amount:   amount,
		Category: ClassifyCategory(text),
		Merchant: receiptMerchant(text),
		Date:     date,
	}, true
}

func receiptAmount(text string) (decimal.Decimal, bool) {
	for _, re := range receiptTotalPatterns {
		if matches := re.FindStringSubmatch(text); len(matches) > 1 {
			if amount, ok := parseNumber(matches[1]); ok {
				return amount, true
			}
		}
	}

	// Fall back to the largest money-looking figure.
	var best decimal.Decimal
	found := false
	for _, match := range receiptMoneyRegex.FindAllStringSubmatch(text, -1) {
		if amount, ok := parseNumber(match[1]); ok && (!found || amount.GreaterThan(best)) {
			best = amount
			found = true
		}
	}
	return best, found
}

func receiptMerchant(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) > 100 {
			line = line[:100]
		}
		return line
	}
	return ""
}
