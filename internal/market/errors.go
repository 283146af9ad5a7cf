package market

import (
	"errors"
	"fmt"
)

var ErrEmptyOrder = errors.New("empty order")

type InvalidItemError struct {
	BookID   int64
	Quantity int
}

func (e *InvalidItemError) Error() string {
	return fmt.Sprintf("invalid quantity %d for book %d", e.Quantity, e.BookID)
}

// StockError identifies the short book by title, the way callers see it.
type StockError struct {
	BookID    int64
	Title     string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return "not enough stock for: " + e.Title
}
