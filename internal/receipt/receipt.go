package receipt

import (
	"time"

	"github.com/zombor/card-receipts/internal/card"
)

// ExpenseReport is a set of transactions filed together as one expense claim
type ExpenseReport struct {
	ID             string    `json:"id"`
	TransactionIDs []string  `json:"transaction_ids"`
	TotalAmount    uint64    `json:"total_amount"` // Whole KRW
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Upload is one file submitted for recognition
type Upload struct {
	Filename    string
	Data        []byte
	ContentType string
}

// Failure records an upload that could not be turned into a transaction
type Failure struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// BatchResult holds the outcome of processing several uploads
type BatchResult struct {
	Transactions []*card.Transaction `json:"transactions"`
	Failures     []Failure           `json:"failures"`
}

// Summary totals the stored transactions
type Summary struct {
	Count      int               `json:"count"`
	Total      uint64            `json:"total"`
	Formatted  string            `json:"formatted_total"`
	ByCategory map[string]uint64 `json:"by_category"`
}
