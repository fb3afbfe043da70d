package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Cents is a monetary amount in centavos. It travels through JSON as a
// decimal with two places ("1234.56") and accepts bare numbers on input.
type Cents int64

// ParseAmount converts a decimal string into centavos. At most two decimal
// places are accepted; anything else is a validation error.
func ParseAmount(s string) (Cents, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, &ValidationError{Reason: "amount is required"}
	}
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	if s == "" {
		return 0, &ValidationError{Reason: "amount is required"}
	}
	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
	}
	if intPart == "" {
		intPart = "0"
	}
	if len(fracPart) > 2 {
		return 0, &ValidationError{Reason: fmt.Sprintf("amount %q has more than two decimal places", s)}
	}
	for len(fracPart) < 2 {
		fracPart += "0"
	}
	// Only digits beyond the single leading sign; ParseInt alone would accept
	// a second sign inside either part.
	if !digitsOnly(intPart) || !digitsOnly(fracPart) {
		return 0, &ValidationError{Reason: fmt.Sprintf("amount %q is not a valid monetary value", s)}
	}
	whole, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, &ValidationError{Reason: fmt.Sprintf("amount %q is not a valid monetary value", s)}
	}
	frac, err := strconv.ParseInt(fracPart, 10, 64)
	if err != nil {
		return 0, &ValidationError{Reason: fmt.Sprintf("amount %q is not a valid monetary value", s)}
	}
	v := Cents(whole*100 + frac)
	if neg {
		v = -v
	}
	return v, nil
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (c Cents) String() string {
	v := int64(c)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}

func (c *Cents) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		// Bare JSON number.
		s = string(b)
	}
	v, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*c = v
	return nil
}
