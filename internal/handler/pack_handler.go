package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"pack-portal/internal/model"
	"pack-portal/pkg/apierror"
)

type packCatalog interface {
	List(ctx context.Context, filter model.PackFilter) ([]model.Pack, error)
	Get(ctx context.Context, id string) (model.Pack, error)
}

type PackHandler struct {
	packs packCatalog
}

func NewPackHandler(packs packCatalog) *PackHandler {
	return &PackHandler{packs: packs}
}

func (h *PackHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := model.PackFilter{Tag: query.Get("tag")}

	if raw := strings.TrimSpace(query.Get("premium")); raw != "" {
		premium, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, apierror.Validation("premium は true または false で指定してください", raw))
			return
		}
		filter.Premium = &premium
	}

	packs, err := h.packs.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.PackListData{Packs: packs})
}

func (h *PackHandler) Get(w http.ResponseWriter, r *http.Request) {
	pack, err := h.packs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pack)
}
