package parser

import (
	"regexp"
	"strings"

	"github.com/zombor/card-receipts/internal/card"
)

// amountToken matches a digit run, optionally split by thousands separators
// (with stray OCR spaces around them), followed by the won unit.
const amountToken = `(\d+(?:[ \t]*[,.][ \t]*\d+)*)\s*원`

var amountRe = regexp.MustCompile(amountToken)

// labelPattern quotes label and tolerates whitespace between its characters
func labelPattern(label string) string {
	runes := []rune(label)
	parts := make([]string, 0, len(runes))
	for _, r := range runes {
		if r == ' ' {
			continue
		}
		parts = append(parts, regexp.QuoteMeta(string(r)))
	}
	return strings.Join(parts, `\s*`)
}

// amountAfterLabel reads the amount printed right after label
func amountAfterLabel(label string) amountStrategy {
	re := regexp.MustCompile(labelPattern(label) + `[\s:]*` + amountToken)
	return func(text string) (uint64, bool) {
		m := re.FindStringSubmatch(text)
		if m == nil {
			return 0, false
		}
		amount, err := card.ParseAmount(m[1])
		if err != nil {
			return 0, false
		}
		return amount, true
	}
}

// firstAmount returns the first amount-shaped token anywhere in text
func firstAmount(text string) (uint64, bool) {
	for _, m := range amountRe.FindAllStringSubmatch(text, -1) {
		if amount, err := card.ParseAmount(m[1]); err == nil {
			return amount, true
		}
	}
	return 0, false
}

// firstNonZeroAmount skips zero sub-totals such as "부가세 0원"
func firstNonZeroAmount(text string) (uint64, bool) {
	for _, m := range amountRe.FindAllStringSubmatch(text, -1) {
		if amount, err := card.ParseAmount(m[1]); err == nil && amount > 0 {
			return amount, true
		}
	}
	return 0, false
}

func isAmountLine(line string) bool {
	return amountRe.MatchString(line)
}
