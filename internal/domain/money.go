package domain

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Money is an amount in minor currency units (1/100).
type Money int64

// NewMoney builds a Money value from whole units and cents.
func NewMoney(units, cents int64) Money {
	if units < 0 {
		return Money(units*100 - cents)
	}
	return Money(units*100 + cents)
}

// ParseMoney parses a decimal amount such as "590", "590.5" or "590.00".
// More than two fractional digits is rejected rather than rounded.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	whole, frac, hasDot := strings.Cut(s, ".")
	if whole == "" && (!hasDot || frac == "") {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if !isDigits(whole) || !isDigits(frac) {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("amount %q has more than two decimal places", s)
	}

	var units int64
	if whole != "" {
		v, err := strconv.ParseInt(whole, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid amount %q", s)
		}
		units = v
	}

	var cents int64
	if frac != "" {
		for len(frac) < 2 {
			frac += "0"
		}
		cents = int64(frac[0]-'0')*10 + int64(frac[1]-'0')
	}

	if units > (math.MaxInt64-cents)/100 {
		return 0, fmt.Errorf("amount %q out of range", s)
	}

	m := Money(units*100 + cents)
	if neg {
		m = -m
	}
	return m, nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Float64 is for display and metrics only.
func (m Money) Float64() float64 {
	return float64(m) / 100
}

func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON encodes the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	s := string(data)
	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		unq, err := strconv.Unquote(s)
		if err != nil {
			return fmt.Errorf("invalid amount %s", s)
		}
		s = unq
	}
	if strings.ContainsAny(s, "eE") {
		return fmt.Errorf("amount %s must be a plain decimal", s)
	}
	v, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// MulRatio returns m * num / den rounded half up to the minor unit.
// ok is false when the product does not fit in an int64.
func (m Money) MulRatio(num, den int64) (Money, bool) {
	if den <= 0 || num < 0 {
		return 0, false
	}
	v := int64(m)
	neg := v < 0
	if neg {
		if v == math.MinInt64 {
			return 0, false
		}
		v = -v
	}
	if v != 0 && num > math.MaxInt64/v {
		return 0, false
	}
	p := v * num
	q, r := p/den, p%den
	if r >= den-r {
		q++
	}
	if neg {
		q = -q
	}
	return Money(q), true
}
