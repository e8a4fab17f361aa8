package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a money value. It is sent to the API as a bare JSON number.
type Amount struct {
	decimal.Decimal
}

// NewAmount returns an Amount for a whole-unit value.
func NewAmount(v int64) Amount {
	return Amount{decimal.NewFromInt(v)}
}

// ParseAmount parses user input such as "1000", "1,250.50" or "12,5".
// A single comma followed by one or two digits is treated as a decimal separator.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, fmt.Errorf("empty amount")
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		if i := strings.Index(s, ","); len(s)-i-1 <= 2 {
			s = strings.Replace(s, ",", ".", 1)
		}
	}
	s = strings.ReplaceAll(s, ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q", s)
	}
	return Amount{d}, nil
}

// MarshalJSON writes the amount as a JSON number.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

// Format renders the amount with thousands separators and two decimals.
func (a Amount) Format() string {
	s := a.Decimal.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String() + "." + frac
	if neg {
		return "-" + out
	}
	return out
}
