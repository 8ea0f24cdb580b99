package card

import (
	"fmt"
	"sort"
	"strings"
)

// SortColumn selects the field transactions are ordered by
type SortColumn string

const (
	SortByIndex    SortColumn = "index"
	SortByDateTime SortColumn = "datetime"
	SortByMerchant SortColumn = "merchant"
	SortByAmount   SortColumn = "amount"
)

// SortDirection is ascending or descending
type SortDirection string

const (
	Ascending  SortDirection = "asc"
	Descending SortDirection = "desc"
)

// ParseSort reads column and direction names, defaulting to datetime ascending
func ParseSort(column, direction string) (SortColumn, SortDirection, error) {
	col := SortByDateTime
	switch c := SortColumn(strings.ToLower(strings.TrimSpace(column))); c {
	case "":
	case SortByIndex, SortByDateTime, SortByMerchant, SortByAmount:
		col = c
	default:
		return "", "", fmt.Errorf("unknown sort column: %s", column)
	}

	dir := Ascending
	switch d := SortDirection(strings.ToLower(strings.TrimSpace(direction))); d {
	case "":
	case Ascending, Descending:
		dir = d
	default:
		return "", "", fmt.Errorf("unknown sort direction: %s", direction)
	}
	return col, dir, nil
}

// Sort orders txns in place. SortByIndex keeps the natural order.
func Sort(txns []*Transaction, column SortColumn, direction SortDirection) {
	var less func(a, b *Transaction) bool
	switch column {
	case SortByDateTime:
		less = func(a, b *Transaction) bool { return a.DateTime.Before(b.DateTime) }
	case SortByMerchant:
		less = func(a, b *Transaction) bool { return a.Merchant < b.Merchant }
	case SortByAmount:
		less = func(a, b *Transaction) bool { return a.Amount < b.Amount }
	default:
		return
	}

	sort.SliceStable(txns, func(i, j int) bool {
		if direction == Descending {
			return less(txns[j], txns[i])
		}
		return less(txns[i], txns[j])
	})
}

// Total sums the amounts of txns
func Total(txns []*Transaction) uint64 {
	var total uint64
	for _, t := range txns {
		total += t.Amount
	}
	return total
}
