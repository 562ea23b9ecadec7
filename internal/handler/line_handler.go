package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"pack-portal/internal/line"
	"pack-portal/internal/model"
	"pack-portal/pkg/apierror"
)

const maxLineBodyBytes = 1 << 20

type lineEventHandler interface {
	HandleEvents(ctx context.Context, body model.LineWebhookBody)
}

type LineHandler struct {
	events        lineEventHandler
	channelSecret string
}

func NewLineHandler(events lineEventHandler, channelSecret string) *LineHandler {
	return &LineHandler{events: events, channelSecret: channelSecret}
}

func (h *LineHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxLineBodyBytes))
	if err != nil {
		writeError(w, apierror.Validation("No body", err.Error()))
		return
	}

	signature := r.Header.Get("X-Line-Signature")
	if signature == "" {
		slog.Warn("LINE webhook without signature")
		writeError(w, apierror.Validation("No signature", ""))
		return
	}

	if !line.VerifySignature(h.channelSecret, raw, signature) {
		slog.Warn("LINE webhook signature mismatch")
		writeError(w, apierror.Auth("Invalid signature"))
		return
	}

	var body model.LineWebhookBody
	if err := json.Unmarshal(raw, &body); err != nil {
		writeError(w, apierror.Validation("Invalid body", err.Error()))
		return
	}

	h.events.HandleEvents(r.Context(), body)

	writeJSON(w, http.StatusOK, model.StatusResponse{Status: "OK"})
}

func (h *LineHandler) Status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, model.StatusResponse{Status: "LINE Webhook endpoint is running"})
}
