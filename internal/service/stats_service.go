package service

import (
	"context"
	"log/slog"

	"pack-portal/internal/model"
	"pack-portal/pkg/apierror"
)

const topPacksLimit = 5

type statsReader interface {
	Summary(ctx context.Context, topN int) (model.PortalStats, error)
}

type StatsService struct {
	stats statsReader
}

func NewStatsService(stats statsReader) *StatsService {
	return &StatsService{stats: stats}
}

func (s *StatsService) Summary(ctx context.Context) (model.PortalStats, error) {
	summary, err := s.stats.Summary(ctx, topPacksLimit)
	if err != nil {
		slog.Error("stats summary failed", "error", err)
		return model.PortalStats{}, apierror.Persistence("統計情報の取得に失敗しました")
	}

	if summary.TopPacks == nil {
		summary.TopPacks = []model.PackDownloadStat{}
	}

	return summary, nil
}
