package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/VanderajLS/metier-backend/internal/apperr"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Field     string `json:"field,omitempty"`
	Available *int   `json:"available,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	detail := errorDetail{
		Kind:    string(apperr.KindInternal),
		Message: "internal error",
	}

	var ae *apperr.Error
	if errors.As(err, &ae) {
		detail.Kind = string(ae.Kind)
		detail.Message = ae.Message
		detail.Field = ae.Field
		if ae.Kind == apperr.KindInsufficientStock {
			available := ae.Available
			detail.Available = &available
		}
	}

	writeJSON(w, statusForKind(apperr.Kind(detail.Kind)), errorBody{Error: detail})
}

func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindOutOfStock, apperr.KindInsufficientStock, apperr.KindEmptyCart:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
