package parser

import (
	"strings"
	"unicode/utf8"
)

// detailHeader opens the itemized section of card app screenshots
const detailHeader = "상세 이용내역"

// Field labels that appear inside the detail section, often interleaved
// with the merchant when OCR reads a two-column modal row by row.
var detailFieldLabels = []string{
	"거래구분",
	"승인번호",
	"거래상태",
	"이용카드",
	"가맹점",
	"공급가액",
	"부가세",
	"봉사료",
	"자원순환",
	"거래일",
	"결제확정",
	"일시불",
	"본인",
	"신용",
	"체크",
	"카드이용내역",
	"매출전표",
	"구글페이",
}

// Boilerplate that is never a merchant name
var boilerplate = []string{
	"카드이용내역",
	"매출전표",
	"상세 이용내역",
	"하나카드",
	"현대카드",
	"결제 정보",
	"결제 구분",
	"결제 카드",
	"금액 상세",
	"카드번호",
	"카드 소지자",
	"가상카드번호",
	"거래일",
	"거래 일자",
	"이용일시",
	"거래유형",
	"거래구분",
	"일시불",
	"승인번호",
	"승인상태",
	"거래상태",
	"이용카드",
	"결제확정",
	"현지승인금액",
	"CNY",
	"USD",
	"JPY",
	"EUR",
	"VISA",
	"MasterCard",
	"UnionPay",
	"실제 결제금액",
	"해외이용수수료",
	"가맹점명",
	"가맹점 번호",
	"가맹점 상세",
	"대표자명",
	"사업자 등록번호",
	"업종",
}

// closeGlyph is the modal close button OCR tends to read as a letter
func closeGlyph(s string) bool {
	return s == "X" || s == "x"
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// textAfterLabel reads the value following label on the same line,
// or the next non-empty line when the label stands alone. A next line
// holding an amount or another field is not a value.
func textAfterLabel(label string) merchantStrategy {
	return func(text string) string {
		lines := strings.Split(text, "\n")
		for i, line := range lines {
			idx := strings.Index(line, label)
			if idx < 0 {
				continue
			}
			after := line[idx+len(label):]
			if next := strings.Index(after, label); next >= 0 {
				after = after[:next]
			}
			after = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(after), ":"))
			if after != "" && !closeGlyph(after) {
				return after
			}
			for _, next := range lines[i+1:] {
				next = strings.TrimSpace(next)
				if next == "" || closeGlyph(next) {
					continue
				}
				if isAmountLine(next) || containsAny(next, boilerplate) {
					break
				}
				return next
			}
		}
		return ""
	}
}

// onlyDigitsAndSeparators reports lines like "3001 2345" or "2026.01.23"
func onlyDigitsAndSeparators(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == ',' || r == '.' || r == '-' || r == ':' || r == '/' || r == ' ':
		default:
			return false
		}
	}
	return true
}

// merchantFromDetail picks the first plausible line after the detail header
func merchantFromDetail(text string) string {
	found := false
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.Contains(trimmed, detailHeader) {
			found = true
			continue
		}
		if !found {
			continue
		}

		switch {
		case trimmed == "",
			closeGlyph(trimmed),
			strings.HasPrefix(trimmed, "~"),
			utf8.RuneCountInString(trimmed) <= 1:
			continue
		case containsAny(trimmed, detailFieldLabels):
			continue
		case isAmountLine(trimmed):
			continue
		case onlyDigitsAndSeparators(trimmed):
			continue
		}
		return trimmed
	}
	return ""
}

// merchantBeforeAmount keeps the last non-boilerplate line seen before the
// first amount line. Merchant names sit directly above the total on most layouts.
func merchantBeforeAmount(text string) string {
	candidate := ""
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if isAmountLine(trimmed) {
			break
		}
		if containsAny(trimmed, boilerplate) {
			continue
		}
		if len(trimmed) > 1 {
			candidate = trimmed
		}
	}
	return candidate
}
