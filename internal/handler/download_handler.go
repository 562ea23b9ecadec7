package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"pack-portal/internal/middleware"
	"pack-portal/internal/model"
	"pack-portal/internal/util"
)

type downloadRedeemer interface {
	Inspect(ctx context.Context, token string) (model.TokenInfo, error)
	Redeem(ctx context.Context, token string, client model.ClientInfo) (model.PackFile, error)
}

type DownloadHandler struct {
	downloads downloadRedeemer
}

func NewDownloadHandler(downloads downloadRedeemer) *DownloadHandler {
	return &DownloadHandler{downloads: downloads}
}

// VerifyToken reports the pack a token grants without recording a download.
func (h *DownloadHandler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	info, err := h.downloads.Inspect(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

func (h *DownloadHandler) Download(w http.ResponseWriter, r *http.Request) {
	client := model.ClientInfo{
		IP:        middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
	}

	file, err := h.downloads.Redeem(r.Context(), r.URL.Query().Get("token"), client)
	if err != nil {
		writeError(w, err)
		return
	}
	defer file.Body.Close()

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", util.ContentDisposition(file.Title))
	if file.Size >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(file.Size, 10))
	}
	w.WriteHeader(http.StatusOK)

	written, err := io.Copy(w, file.Body)
	if err != nil {
		slog.Warn("download stream interrupted", "title", file.Title, "written", written, "error", err, "cause", context.Cause(r.Context()))
	}
}
