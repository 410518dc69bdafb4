package apperror

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/sbilibin2017/musicon/internal/logger"
)

var development atomic.Bool

// SetDevelopment toggles detailed error responses.
func SetDevelopment(dev bool) {
	development.Store(dev)
}

// Response is the failure envelope.
// swagger:model ErrorResponse
type Response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	Stack   string `json:"stack,omitempty"`
}

// Write translates err and writes the failure envelope. In production only
// operational messages reach the client.
func Write(w http.ResponseWriter, err error) {
	appErr := Translate(err)

	resp := Response{Status: appErr.Status(), Message: appErr.Message}
	switch {
	case development.Load():
		resp.Error = err.Error()
		resp.Stack = appErr.StackTrace()
	case !appErr.Operational:
		logger.Log.Errorw("unexpected error", "err", err)
		resp.Status = "error"
		resp.Message = "Something went wrong!"
		appErr = &AppError{StatusCode: http.StatusInternalServerError}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)
	json.NewEncoder(w).Encode(resp)
}
