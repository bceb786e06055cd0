// Package report renders analysis results as Markdown blocks, CSV and JSON.
package report

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/KaramelBytes/yearlens/internal/analysis"
)

// NullMark stands in for undefined values in rendered text.
const NullMark = "—"

var printer = message.NewPrinter(language.Japanese)

// Amount formats v with thousands grouping and no decimals, e.g. "1,260,000".
func Amount(v analysis.Float) string {
	if !v.Valid {
		return NullMark
	}
	return printer.Sprintf("%.0f", math.Round(v.Value))
}

// AmountUnit is Amount followed by unit when unit is set.
func AmountUnit(v analysis.Float, unit string) string {
	s := Amount(v)
	if unit == "" || s == NullMark {
		return s
	}
	return s + unit
}

// Percent formats a ratio as a signed percentage with one decimal.
func Percent(v analysis.Float) string {
	if !v.Valid {
		return NullMark
	}
	return fmt.Sprintf("%+.1f%%", v.Value*100)
}

// Number formats v with up to four significant digits.
func Number(v analysis.Float) string {
	if !v.Valid {
		return NullMark
	}
	return fmt.Sprintf("%.4g", v.Value)
}

func safe(s string) string {
	if s == "" {
		return NullMark
	}
	return s
}
