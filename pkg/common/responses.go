package common

import (
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "propcache-backend/pkg/errors"
)

// ErrorInfo is the wire shape of an error response
type ErrorInfo struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// RespondJSON sends a JSON response
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondError maps an application error onto an HTTP error response
func RespondError(w http.ResponseWriter, err error) {
	status := pkgerrors.HTTPStatusFor(err)

	info := ErrorInfo{Type: string(pkgerrors.ErrorTypeInternal), Message: "internal error"}
	var appErr *pkgerrors.AppError
	if errors.As(err, &appErr) {
		info.Type = string(appErr.Type)
		info.Message = appErr.Message
	}

	RespondJSON(w, status, map[string]interface{}{"error": info})
}

// RespondValidationError sends a 400 with the given message
func RespondValidationError(w http.ResponseWriter, message string) {
	RespondError(w, pkgerrors.NewValidationError(message))
}
