package card

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	// ErrNoDigits is returned when an amount string contains no digits at all
	ErrNoDigits = errors.New("amount contains no digits")
	// ErrInvalidDateTime is returned when an edit carries an impossible calendar value
	ErrInvalidDateTime = errors.New("invalid calendar date-time")
)

// Comma grouping only; KRW has no minor units.
var amountPrinter = message.NewPrinter(language.English)

// FormatAmount renders an amount with thousands separators: 45000 -> "45,000"
func FormatAmount(amount uint64) string {
	return amountPrinter.Sprintf("%d", amount)
}

// ParseAmount strips every non-digit character and parses the rest,
// so "27,600 원", "27600원" and "27 , 600" all yield 27600.
func ParseAmount(s string) (uint64, error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
	if digits == "" {
		return 0, ErrNoDigits
	}
	amount, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	return amount, nil
}
