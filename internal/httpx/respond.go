package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/nigersavoir/savoir-api/internal/catalog"
	"github.com/nigersavoir/savoir-api/internal/identity"
	"github.com/nigersavoir/savoir-api/internal/market"
	"github.com/nigersavoir/savoir-api/internal/reaction"
)

// identityHeader carries the email asserted by the fronting auth layer.
// Token verification happens there, not here.
const identityHeader = "X-User-Email"

func callerEmail(r *http.Request) string {
	return r.Header.Get(identityHeader)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeDomainError maps engine errors onto the transport without leaking
// storage detail. Anything unrecognized is logged and reported generically.
func writeDomainError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var (
		invalidItem *market.InvalidItemError
		stock       *market.StockError
	)
	switch {
	case errors.Is(err, identity.ErrUserNotFound):
		writeError(w, http.StatusUnauthorized, "unknown user")
	case errors.Is(err, catalog.ErrBookNotFound),
		errors.Is(err, catalog.ErrDocumentNotFound),
		errors.Is(err, reaction.ErrTargetNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, market.ErrEmptyOrder),
		errors.Is(err, reaction.ErrUnknownType),
		errors.As(err, &invalidItem):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &stock):
		writeError(w, http.StatusConflict, err.Error())
	default:
		logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
