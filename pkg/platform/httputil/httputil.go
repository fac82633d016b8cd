package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "pharmachain/pkg/domain-errors"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	BatchID          string `json:"batch_id,omitempty"`
}

// StatusFor maps a domain error code to an HTTP status.
func StatusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeAlreadyExists,
		dErrors.CodeAlreadySpoiled,
		dErrors.CodeAlreadyExpired,
		dErrors.CodeNotYetExpired:
		return http.StatusConflict
	case dErrors.CodeNotHolder:
		return http.StatusForbidden
	case dErrors.CodeInvalidInterval,
		dErrors.CodeInvalidIdentity,
		dErrors.CodeValidation,
		dErrors.CodeBadRequest:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// WriteError renders err as an ErrorResponse. Internal failures omit the
// description so storage details never leak to callers.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := StatusFor(code)

	resp := ErrorResponse{Error: string(code), BatchID: dErrors.BatchIDOf(err)}
	if status != http.StatusInternalServerError {
		resp.ErrorDescription = describe(err)
	}
	WriteJSON(w, status, resp)
}

// WriteJSON renders v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func describe(err error) string {
	var e *dErrors.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
