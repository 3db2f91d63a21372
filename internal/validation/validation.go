package validation

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// DateFormat is the external day/month/year literal format. ISO dates are
// accepted as a secondary input format and normalized on parse.
const DateFormat = "02/01/2006"

const isoDateFormat = "2006-01-02"

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

func OneOf(field, value string, allowed []string, v Violations) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	v[field] = "invalid_value"
}

// ParseMoney parses a 2-decimal currency amount. Negative amounts are
// rejected at this boundary; nothing in the model carries negative money.
func ParseMoney(value string) (decimal.Decimal, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(value)
	if err != nil || d.IsNegative() {
		return decimal.Zero, false
	}
	return d, true
}

// ParseDate parses dd/mm/yyyy, falling back to ISO yyyy-mm-dd.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(DateFormat, value); err == nil {
		return t, true
	}
	if t, err := time.Parse(isoDateFormat, value); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// FormatDate renders a time in the external dd/mm/yyyy format.
func FormatDate(t time.Time) string { return t.Format(DateFormat) }
