package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopkit/go-shop-api/internal/shop"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errBody struct {
	Error   string                `json:"error"`
	Details []shop.StockShortfall `json:"details,omitempty"`
}

// writeError maps the error taxonomy onto status codes. No kind is ever
// downgraded: validation -> 400, missing entity -> 404, shortfall -> 409,
// anything else -> 500.
func writeError(w http.ResponseWriter, err error) {
	var ve *shop.ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusBadRequest, errBody{Error: ve.Error()})
		return
	}
	if errors.Is(err, shop.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errBody{Error: err.Error()})
		return
	}
	var ise *shop.InsufficientStockError
	if errors.As(err, &ise) {
		writeJSON(w, http.StatusConflict, errBody{Error: ise.Error(), Details: ise.Shortfalls})
		return
	}
	writeJSON(w, http.StatusInternalServerError, errBody{Error: "internal error"})
}
