package parser

import (
	"github.com/zombor/card-receipts/internal/card"
)

// Parse classifies rawText and extracts a transaction from it. The image
// is attached by the caller.
func Parse(filename, rawText string) (*card.Transaction, error) {
	format := Classify(rawText)
	fields, err := Extract(format, rawText)
	if err != nil {
		return nil, err
	}

	return &card.Transaction{
		Filename: filename,
		DateTime: fields.DateTime,
		Merchant: fields.Merchant,
		Amount:   fields.Amount,
		RawText:  rawText,
		Format:   format,
	}, nil
}
