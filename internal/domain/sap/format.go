package sap

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// acceptedDateLayouts are the input formats tolerated for document dates
var acceptedDateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02.01.2006",
	"01/02/2006",
	time.RFC3339,
	"20060102",
}

// FormatDate converts a date string in one of the accepted layouts to the
// remote system's YYYYMMDD form.
func FormatDate(value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", fmt.Errorf("empty date")
	}
	for _, layout := range acceptedDateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.Format("20060102"), nil
		}
	}
	return "", fmt.Errorf("invalid date format: %q", value)
}

// PadAccount left-pads a vendor/customer account number with zeros to the
// 10-character width the remote master data tables use.
func PadAccount(code string) string {
	code = strings.TrimSpace(code)
	if len(code) >= 10 {
		return code
	}
	return strings.Repeat("0", 10-len(code)) + code
}

// FormatAmount renders a decimal amount the way the remote system expects
// currency fields: fixed two decimal places, no grouping.
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}
