// Package parser turns OCR text from card payment receipts into transactions.
package parser

import (
	"strings"
	"unicode"

	"github.com/zombor/card-receipts/internal/card"
)

type marker struct {
	format  card.Format
	phrases []string
}

// Checked top to bottom; when phrases overlap the earlier format wins.
var markers = []marker{
	{card.FormatHanaCard, []string{"하나카드", "거래일시"}},
	{card.FormatNaverHyundai, []string{"결제 정보", "현대카드", "거래 일자"}},
	{card.FormatCardApp, []string{"카드이용내역", "매출전표", "상세 이용내역"}},
}

// Classify returns the layout of the receipt text, or card.FormatUnknown
func Classify(text string) card.Format {
	text = normalizeSpaces(text)
	for _, m := range markers {
		for _, phrase := range m.phrases {
			if strings.Contains(text, phrase) {
				return m.format
			}
		}
	}
	return card.FormatUnknown
}

// normalizeSpaces replaces non-ASCII horizontal whitespace (NBSP, ideographic
// space) that OCR engines emit with a plain space. Line breaks are kept.
func normalizeSpaces(text string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' || r == ' ' {
			return r
		}
		if unicode.IsSpace(r) {
			return ' '
		}
		return r
	}, text)
}
