package parser

import (
	"cloud.google.com/go/civil"

	"github.com/zombor/card-receipts/internal/card"
)

// Fields are the values extracted from one receipt text
type Fields struct {
	DateTime civil.DateTime
	Merchant string
	Amount   uint64
}

type (
	dateStrategy     func(text string) (civil.DateTime, bool)
	amountStrategy   func(text string) (uint64, bool)
	merchantStrategy func(text string) string
)

// extractor holds the ordered strategies for one layout. The first strategy
// to succeed decides the field; the order is part of the behavior.
type extractor struct {
	dates     []dateStrategy
	amounts   []amountStrategy
	merchants []merchantStrategy
}

var extractors = map[card.Format]extractor{
	card.FormatHanaCard: {
		dates:     []dateStrategy{dateFrom(hanaDateLayouts)},
		amounts:   []amountStrategy{amountAfterLabel("승인금액"), firstAmount},
		merchants: []merchantStrategy{textAfterLabel("가맹점명"), merchantBeforeAmount},
	},
	card.FormatNaverHyundai: {
		dates:     []dateStrategy{dateFrom(naverDateLayouts)},
		amounts:   []amountStrategy{amountAfterLabel("금액"), firstNonZeroAmount, firstAmount},
		merchants: []merchantStrategy{merchantBeforeAmount},
	},
	card.FormatCardApp: {
		dates:     []dateStrategy{dateFrom(cardAppDateLayouts)},
		amounts:   []amountStrategy{amountAfterLabel("공급가액"), firstNonZeroAmount, firstAmount},
		merchants: []merchantStrategy{merchantFromDetail, textAfterLabel(detailHeader), merchantBeforeAmount},
	},
}

func (e extractor) extract(format card.Format, text string) (Fields, error) {
	var fields Fields

	found := false
	for _, s := range e.dates {
		if fields.DateTime, found = s(text); found {
			break
		}
	}
	if !found {
		return Fields{}, &ExtractionError{Format: format, Field: FieldDateTime, Err: ErrDateNotFound}
	}

	found = false
	for _, s := range e.amounts {
		if fields.Amount, found = s(text); found {
			break
		}
	}
	if !found {
		return Fields{}, &ExtractionError{Format: format, Field: FieldAmount, Err: ErrAmountNotFound}
	}

	for _, s := range e.merchants {
		if fields.Merchant = s(text); fields.Merchant != "" {
			break
		}
	}
	return fields, nil
}

// Extract pulls the date-time, merchant and amount out of text using the
// strategies for format. An unknown format tries every layout in
// classification order and keeps the first complete result.
func Extract(format card.Format, text string) (Fields, error) {
	text = normalizeSpaces(text)

	if e, ok := extractors[format]; ok {
		return e.extract(format, text)
	}

	for _, f := range card.Formats() {
		if fields, err := extractors[f].extract(f, text); err == nil {
			return fields, nil
		}
	}
	return Fields{}, ErrUnrecognizedFormat
}
