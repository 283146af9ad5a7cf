package catalog

import (
	"errors"
	"time"
)

var (
	ErrBookNotFound     = errors.New("book not found")
	ErrDocumentNotFound = errors.New("document not found")
)

type Book struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Author     string    `json:"author"`
	PriceCents int64     `json:"priceCents"`
	Stock      int       `json:"stock"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
