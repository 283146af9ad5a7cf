package market

import "time"

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPaid      Status = "PAID"
	StatusShipped   Status = "SHIPPED"
	StatusCancelled Status = "CANCELLED"
)

type ItemInput struct {
	BookID   int64 `json:"bookId"`
	Quantity int   `json:"quantity"`
}

type Order struct {
	ID         string
	UserID     int64
	Status     Status
	TotalCents int64
	CreatedAt  time.Time
	Items      []OrderItem
}

// OrderItem keeps the price snapshot taken at order time; later price changes
// on the book must not alter it.
type OrderItem struct {
	BookID         int64
	Quantity       int
	UnitPriceCents int64
	LineTotalCents int64
}

type OrderSummary struct {
	ID         string        `json:"id"`
	Status     Status        `json:"status"`
	TotalCents int64         `json:"totalCents"`
	CreatedAt  time.Time     `json:"createdAt"`
	Items      []ItemSummary `json:"items"`
}

type ItemSummary struct {
	BookID         int64  `json:"bookId"`
	Title          string `json:"title"`
	Author         string `json:"author"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unitPriceCents"`
	LineTotalCents int64  `json:"lineTotalCents"`
}
