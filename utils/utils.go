package utils

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/nijaru/yt-search/errors"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

func HandleError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// HandleAppError writes err with the status its kind maps to. Internal
// details stay in the log; clients only see the message.
func HandleAppError(w http.ResponseWriter, err error) {
	status := apperrors.StatusCode(err)
	message := http.StatusText(status)

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && status < http.StatusInternalServerError {
		message = appErr.Message
	}
	if status >= http.StatusInternalServerError {
		logrus.WithError(err).Error("Request failed")
	}
	HandleError(w, message, status)
}

func WriteJSON(w http.ResponseWriter, statusCode int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(v)
}
