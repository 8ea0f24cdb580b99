package card

// Format identifies the receipt layout a transaction was parsed from
type Format string

const (
	// FormatHanaCard is the Hana Card web receipt (label/value rows)
	FormatHanaCard Format = "hana_card"
	// FormatNaverHyundai is the Naver Hyundai Card app screenshot
	FormatNaverHyundai Format = "naver_hyundai_card"
	// FormatCardApp is the card app "매출전표" / detail modal screenshot
	FormatCardApp Format = "card_app_screenshot"
	// FormatUnknown is used when no layout marker was found
	FormatUnknown Format = "unknown"
)

// Formats returns the known layouts in classification priority order
func Formats() []Format {
	return []Format{FormatHanaCard, FormatNaverHyundai, FormatCardApp}
}

// DisplayName returns the label shown to users
func (f Format) DisplayName() string {
	switch f {
	case FormatHanaCard:
		return "하나카드"
	case FormatNaverHyundai:
		return "네이버현대카드"
	case FormatCardApp:
		return "카드앱"
	default:
		return "기타"
	}
}

// Valid reports whether f is one of the closed set of tags
func (f Format) Valid() bool {
	switch f {
	case FormatHanaCard, FormatNaverHyundai, FormatCardApp, FormatUnknown:
		return true
	}
	return false
}

func (f Format) String() string {
	return string(f)
}
