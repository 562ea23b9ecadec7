package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"pack-portal/internal/model"
	"pack-portal/internal/service"
	"pack-portal/pkg/apierror"
)

const maxClaimBodyBytes = 16 << 10

type claimIssuer interface {
	Issue(ctx context.Context, req model.ClaimRequest) (model.ClaimResult, error)
}

type ClaimHandler struct {
	claims claimIssuer
}

func NewClaimHandler(claims claimIssuer) *ClaimHandler {
	return &ClaimHandler{claims: claims}
}

func (h *ClaimHandler) Claim(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.ClaimRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxClaimBodyBytes)).Decode(&payload); err != nil {
		writeError(w, apierror.Validation("リクエストの形式が正しくありません", err.Error()))
		return
	}

	result, err := h.claims.Issue(r.Context(), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.ClaimResponse{
		Success: true,
		Token:   result.Token,
		Message: service.MsgClaimSucceeded,
	})
}
