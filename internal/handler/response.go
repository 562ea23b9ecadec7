package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"pack-portal/internal/model"
	"pack-portal/pkg/apierror"
)

const msgInternalError = "サーバー内部でエラーが発生しました"

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := model.ErrorResponse{
		Success: false,
		Error:   msgInternalError,
		Code:    "INTERNAL_ERROR",
	}

	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		status = apiErr.HTTPStatus
		body.Code = apiErr.Code
		body.Error = apiErr.Message
		if apiErr.Details != "" {
			slog.Debug("request rejected", "code", apiErr.Code, "details", apiErr.Details)
		}
	} else {
		// Log unclassified errors so they are visible in container logs.
		slog.Error("unhandled error in writeError", "error", err.Error())
	}

	writeJSON(w, status, body)
}
