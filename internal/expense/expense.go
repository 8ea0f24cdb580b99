// Package expense suggests an expense type for a merchant name so receipts
// can be filed in the company expense system.
package expense

import (
	"strings"
	"sync"

	"github.com/cloudflare/ahocorasick"
)

// Recommendation is the suggested expense type for a merchant
type Recommendation struct {
	// Label is the short name entered in the expense note, e.g. "Taxi"
	Label string `json:"label"`
	// Category is the accounting category the expense is booked under
	Category string `json:"category"`
	// TwoLine notes are written as the label plus the merchant on a second line
	TwoLine bool `json:"two_line"`
}

// Rule maps merchant keywords to a recommendation
type Rule struct {
	Keywords []string
	Recommendation
}

// DefaultRules are checked in order; the first rule with a matching keyword wins
var DefaultRules = []Rule{
	{
		Keywords:       []string{"파이낸셜", "네이버파이낸셜"},
		Recommendation: Recommendation{Label: "Office expense", Category: "办公费(Office expenses)", TwoLine: true},
	},
	{
		Keywords:       []string{"텔레콤", "통신", "KT", "SKT", "LGU"},
		Recommendation: Recommendation{Label: "Telecom", Category: "通讯费(Communication service fee)", TwoLine: true},
	},
	{
		Keywords:       []string{"흥덕", "식당", "레스토랑", "카페", "음식", "투다리", "치킨", "피자"},
		Recommendation: Recommendation{Label: "Business meal", Category: "业务招待(Entertainment expenses)", TwoLine: true},
	},
	{
		Keywords:       []string{"카카오모빌리티", "택시", "DIDI", "Taxi", "taxi"},
		Recommendation: Recommendation{Label: "Taxi", Category: "市内交通(Traffic expense in base city)"},
	},
	{
		Keywords:       []string{"스타한국물류", "물류", "택배", "배송", "CJ대한통운"},
		Recommendation: Recommendation{Label: "Express", Category: "快递费(Express fee)"},
	},
	{
		Keywords:       []string{"하이패스", "도로공사", "순환도로", "하이웨이", "톨게이트"},
		Recommendation: Recommendation{Label: "Tallgate(ETC)", Category: "车辆费(Vehicle expense)"},
	},
	{
		Keywords:       []string{"주유소", "에너지", "GS칼텍스", "현대오일"},
		Recommendation: Recommendation{Label: "Gas", Category: "车辆费(Vehicle expense)"},
	},
}

// Merchants already written as one of these need no suggestion
var knownLabels = map[string]bool{
	"Gas":      true,
	"Tallgate": true,
	"Highpass": true,
	"Taxi":     true,
	"Express":  true,
	"Telecom":  true,
}

// Detector matches merchant names against every rule keyword in one pass
type Detector struct {
	rules []Rule
	// keywordRule maps a matcher pattern index to its rule index
	keywordRule []int

	// ahocorasick.Matcher keeps per-match state and is not safe for concurrent use
	mu      sync.Mutex
	matcher *ahocorasick.Matcher
}

// NewDetector builds a detector for rules
func NewDetector(rules []Rule) *Detector {
	d := &Detector{rules: rules}

	var keywords []string
	for i, r := range rules {
		for _, k := range r.Keywords {
			keywords = append(keywords, k)
			d.keywordRule = append(d.keywordRule, i)
		}
	}
	if len(keywords) > 0 {
		d.matcher = ahocorasick.NewStringMatcher(keywords)
	}
	return d
}

// DefaultDetector is a detector over DefaultRules
var DefaultDetector = NewDetector(DefaultRules)

// Detect returns the recommendation for merchant, if any rule matches
func (d *Detector) Detect(merchant string) (Recommendation, bool) {
	merchant = strings.TrimSpace(merchant)
	if merchant == "" || knownLabels[merchant] || d.matcher == nil {
		return Recommendation{}, false
	}

	d.mu.Lock()
	hits := d.matcher.Match([]byte(merchant))
	d.mu.Unlock()

	best := -1
	for _, idx := range hits {
		if r := d.keywordRule[idx]; best < 0 || r < best {
			best = r
		}
	}
	if best < 0 {
		return Recommendation{}, false
	}
	return d.rules[best].Recommendation, true
}

// Labels lists the labels offered for manual selection, in rule order
func (d *Detector) Labels() []string {
	labels := make([]string, 0, len(d.rules))
	seen := make(map[string]bool, len(d.rules))
	for _, r := range d.rules {
		if !seen[r.Label] {
			seen[r.Label] = true
			labels = append(labels, r.Label)
		}
	}
	return labels
}
