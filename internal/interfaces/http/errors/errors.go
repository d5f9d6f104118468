package errors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sam-bercovici/hydra-sidecar/internal/domain"
)

// ErrorResponse represents the standard error response structure
type ErrorResponse struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

// ErrorDetail represents a validation error detail
type ErrorDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// DetailsOf returns the field details carried by err, if any
func DetailsOf(err error) []ErrorDetail {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		details := make([]ErrorDetail, 0, len(ve.Violations))
		for _, v := range ve.Violations {
			details = append(details, detailOf(v)...)
		}
		return details
	}

	var fe domain.FieldError
	if !errors.As(err, &fe) {
		return nil
	}
	return detailOf(fe)
}

func detailOf(fe domain.FieldError) []ErrorDetail {
	if fe.Field() == "" {
		return nil
	}
	msg := fe.GetMessage()
	if fe.Cause() != nil {
		msg = fe.Cause().Error()
	}
	return []ErrorDetail{{Field: fe.Field(), Message: msg}}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
