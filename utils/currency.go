package utils

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatPeso formats an amount as Philippine pesos, e.g. 1234.5 -> "₱1,234.50".
func FormatPeso(amount decimal.Decimal) string {
	formatted := amount.StringFixed(2)

	negative := strings.HasPrefix(formatted, "-")
	formatted = strings.TrimPrefix(formatted, "-")

	parts := strings.Split(formatted, ".")
	integerPart := parts[0]
	decimalPart := parts[1]

	var result []string
	for i := len(integerPart); i > 0; i -= 3 {
		start := i - 3
		if start < 0 {
			start = 0
		}
		result = append([]string{integerPart[start:i]}, result...)
	}

	sign := ""
	if negative {
		sign = "-"
	}
	return fmt.Sprintf("%s₱%s.%s", sign, strings.Join(result, ","), decimalPart)
}
