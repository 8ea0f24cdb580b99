package parser

import (
	"errors"
	"fmt"

	"github.com/zombor/card-receipts/internal/card"
)

var (
	// ErrDateNotFound means no date layout of the attempted format matched
	ErrDateNotFound = errors.New("date not found")
	// ErrAmountNotFound means the text has no amount-shaped token
	ErrAmountNotFound = errors.New("amount not found")
	// ErrUnrecognizedFormat means every known layout failed on an unclassified text
	ErrUnrecognizedFormat = errors.New("unrecognized receipt format")
)

// Field names a transaction field that extraction failed on
type Field string

const (
	FieldDateTime Field = "datetime"
	FieldAmount   Field = "amount"
)

// ExtractionError reports which field could not be found for which format
type ExtractionError struct {
	Format card.Format
	Field  Field
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s receipt: %s: %v", e.Format.DisplayName(), e.Field, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
