package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/madiallo/banque-backoffice/internal/apperrors"
)

// success envelope: {success, data, message}
type successEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Message string      `json:"message,omitempty"`
}

// error envelope: {success:false, error:{code, message, details?}}
type errorEnvelope struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

type errorBody struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondSuccess(w http.ResponseWriter, status int, data interface{}, message string) {
	respondJSON(w, status, successEnvelope{Success: true, Data: data, Message: message})
}

// respondError maps an AppError to its envelope. Anything that is not
// an AppError surfaces as a generic internal error without leaking the
// underlying message.
func respondError(w http.ResponseWriter, err error) {
	var appErr apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.NewInternal("an unexpected error occurred", err)
	}

	message := appErr.Message
	if appErr.StatusCode >= http.StatusInternalServerError {
		message = "an unexpected error occurred"
	}

	respondJSON(w, appErr.StatusCode, errorEnvelope{
		Success: false,
		Error: errorBody{
			Code:    appErr.Code,
			Message: message,
			Details: appErr.Details,
		},
	})
}
