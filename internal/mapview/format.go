package mapview

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/sells-group/demomap/internal/model"
)

var printer = message.NewPrinter(language.AmericanEnglish)

// FormatValue renders a metric value for tooltips and legends, e.g.
// "$72,500", "41.5 yrs" or "2,300 /sq mi".
func FormatValue(f model.Format, v float64) string {
	switch f {
	case model.FormatDollars:
		return "$" + printer.Sprint(number.Decimal(v, number.MaxFractionDigits(0)))
	case model.FormatYears:
		return printer.Sprint(number.Decimal(v, number.MaxFractionDigits(1))) + " yrs"
	case model.FormatPerSqMi:
		return printer.Sprint(number.Decimal(v, number.MaxFractionDigits(0))) + " /sq mi"
	default:
		return printer.Sprint(number.Decimal(v, number.MaxFractionDigits(0)))
	}
}

// FormatMiles renders a distance in miles with one decimal.
func FormatMiles(meters float64) string {
	return printer.Sprint(number.Decimal(meters/1609.344, number.MaxFractionDigits(1))) + " mi"
}
