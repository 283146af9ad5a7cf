package httpx

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/nigersavoir/savoir-api/internal/catalog"
)

type BookCatalog interface {
	GetBook(ctx context.Context, id int64) (*catalog.Book, error)
}

type BooksHandler struct {
	Catalog BookCatalog
	Logger  *zap.Logger
}

func (h *BooksHandler) Register(r *chi.Mux) {
	r.Get("/books/{id}", h.get)
}

func (h *BooksHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	book, err := h.Catalog.GetBook(ctx, id)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}
