package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"childsubs/internal/logger"
)

// respondWithError logs err with the request logger and sends only userMsg
func respondWithError(w http.ResponseWriter, r *http.Request, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		logger.FromContext(r.Context(), nil).Error(logMsg, zap.Error(err), zap.Int("status", status))
	}

	http.Error(w, userMsg, status)
}

func respondWithJSON(w http.ResponseWriter, r *http.Request, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.FromContext(r.Context(), nil).Warn("failed to write json response", zap.Error(err))
	}
}

type ajaxMessage struct {
	Message string `json:"message"`
}

// ajaxResponse is the success/data envelope the front-end scripts expect
type ajaxResponse struct {
	Success bool        `json:"success"`
	Data    ajaxMessage `json:"data"`
}

func ajaxSuccess(w http.ResponseWriter, r *http.Request, msg string) {
	respondWithJSON(w, r, http.StatusOK, ajaxResponse{Success: true, Data: ajaxMessage{Message: msg}})
}

func ajaxError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	respondWithJSON(w, r, status, ajaxResponse{Success: false, Data: ajaxMessage{Message: msg}})
}
