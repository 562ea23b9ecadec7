package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"pack-portal/internal/model"
	"pack-portal/pkg/apierror"
)

const msgCatalogFailed = "特典パックの取得に失敗しました"

type PackService struct {
	packs packStore
}

func NewPackService(packs packStore) *PackService {
	return &PackService{packs: packs}
}

func (s *PackService) List(ctx context.Context, filter model.PackFilter) ([]model.Pack, error) {
	filter.Tag = strings.TrimSpace(filter.Tag)

	packs, err := s.packs.List(ctx, filter)
	if err != nil {
		slog.Error("pack catalog listing failed", "error", err)
		return nil, apierror.Persistence(msgCatalogFailed)
	}

	if packs == nil {
		packs = []model.Pack{}
	}

	return packs, nil
}

func (s *PackService) Get(ctx context.Context, id string) (model.Pack, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return model.Pack{}, apierror.Validation(msgClaimFieldsMissing, "pack id is required")
	}

	pack, err := s.packs.GetByID(ctx, id)
	if errors.Is(err, model.ErrPackNotFound) {
		return model.Pack{}, apierror.NotFound(msgPackNotFound, id)
	}
	if err != nil {
		slog.Error("pack lookup failed", "pack_id", id, "error", err)
		return model.Pack{}, apierror.Persistence(msgCatalogFailed)
	}

	return pack, nil
}
