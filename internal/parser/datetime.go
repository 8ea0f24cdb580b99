package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// Date-time capture groups shared by every layout:
// year, month, day, hour, minute, optional second.
const (
	dateSep = `\s*[.\-/\s]\s*`
	clock   = `(\d{1,2})\s*:\s*(\d{2})(?:\s*:\s*(\d{2}))?`
)

// dateLayout is one accepted textual shape of a labeled date-time
type dateLayout struct {
	re *regexp.Regexp
}

func newDateLayout(label, year, timeSep string) dateLayout {
	pattern := labelPattern(label) + `\s*:?\s*` +
		year + dateSep + `(\d{1,2})` + dateSep + `(\d{1,2})` +
		timeSep + clock
	return dateLayout{re: regexp.MustCompile(pattern)}
}

var (
	// 거래일시 2026.01.22 16:35:39
	hanaDateLayouts = []dateLayout{
		newDateLayout("거래일시", `(\d{4})`, `\s*`),
	}

	// 거래 일자 26. 1. 31 · 14:59:27
	naverDateLayouts = []dateLayout{
		newDateLayout("거래일자", `(\d{2})`, `\s*[·•∙\-:]?\s*`),
		newDateLayout("거래일자", `(\d{4})`, `\s*[·•∙\-:]?\s*`),
	}

	// 거래일 2026.01.23 11:59
	cardAppDateLayouts = []dateLayout{
		newDateLayout("거래일", `(\d{4})`, `\s*`),
	}
)

// find returns the first match in text that forms a valid calendar value
func (l dateLayout) find(text string) (civil.DateTime, bool) {
	for _, m := range l.re.FindAllStringSubmatch(text, -1) {
		if dt, ok := toDateTime(m[1:]); ok {
			return dt, true
		}
	}
	return civil.DateTime{}, false
}

// toDateTime builds a calendar value from year, month, day, hour, minute
// and an optional second. Two-digit years are in the 2000s.
func toDateTime(groups []string) (civil.DateTime, bool) {
	if len(groups) < 6 {
		return civil.DateTime{}, false
	}
	nums := make([]int, 6)
	for i, g := range groups[:6] {
		g = strings.TrimSpace(g)
		if g == "" {
			continue // seconds default to 0
		}
		n, err := strconv.Atoi(g)
		if err != nil {
			return civil.DateTime{}, false
		}
		nums[i] = n
	}
	if len(strings.TrimSpace(groups[0])) == 2 {
		nums[0] += 2000
	}

	dt := civil.DateTime{
		Date: civil.Date{Year: nums[0], Month: time.Month(nums[1]), Day: nums[2]},
		Time: civil.Time{Hour: nums[3], Minute: nums[4], Second: nums[5]},
	}
	if !dt.IsValid() {
		return civil.DateTime{}, false
	}
	return dt, true
}

// dateFrom tries each layout in order
func dateFrom(layouts []dateLayout) dateStrategy {
	return func(text string) (civil.DateTime, bool) {
		for _, l := range layouts {
			if dt, ok := l.find(text); ok {
				return dt, true
			}
		}
		return civil.DateTime{}, false
	}
}
