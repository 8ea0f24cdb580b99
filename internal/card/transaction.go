package card

import (
	"time"

	"cloud.google.com/go/civil"
)

// Transaction is a card payment extracted from one receipt image
type Transaction struct {
	ID          string         `json:"id"`
	Filename    string         `json:"filename"`
	DateTime    civil.DateTime `json:"datetime"`
	Merchant    string         `json:"merchant"`
	Amount      uint64         `json:"amount"` // Whole KRW
	RawText     string         `json:"raw_text"`
	Format      Format         `json:"format"`
	Category    string         `json:"category,omitempty"` // Expense label, empty when unassigned
	ContentType string         `json:"content_type,omitempty"`
	ImagePath   string         `json:"image_path,omitempty"`
	ReportID    string         `json:"report_id,omitempty"` // Expense report this transaction was filed in
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`

	// ImageBytes is the source image, loaded from storage when needed
	ImageBytes []byte `json:"-"`
}

// Edit holds the user-editable fields of a transaction. Nil fields are left untouched.
type Edit struct {
	Merchant *string         `json:"merchant,omitempty"`
	Amount   *uint64         `json:"amount,omitempty"`
	DateTime *civil.DateTime `json:"datetime,omitempty"`
	Category *string         `json:"category,omitempty"`
}

// Empty reports whether the edit changes nothing
func (e Edit) Empty() bool {
	return e.Merchant == nil && e.Amount == nil && e.DateTime == nil && e.Category == nil
}

// Apply copies the set fields of e onto t. RawText and Format are never touched.
func (t *Transaction) Apply(e Edit) error {
	if e.DateTime != nil && !e.DateTime.IsValid() {
		return ErrInvalidDateTime
	}
	if e.Merchant != nil {
		t.Merchant = *e.Merchant
	}
	if e.Amount != nil {
		t.Amount = *e.Amount
	}
	if e.DateTime != nil {
		t.DateTime = *e.DateTime
	}
	if e.Category != nil {
		t.Category = *e.Category
	}
	return nil
}

// CategoryOrDash returns the category, or "-" when none is assigned
func (t *Transaction) CategoryOrDash() string {
	if t.Category == "" {
		return "-"
	}
	return t.Category
}
