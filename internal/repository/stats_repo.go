package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"pack-portal/internal/model"
)

type StatsRepository struct {
	pool *pgxpool.Pool
}

func NewStatsRepository(pool *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{pool: pool}
}

func (r *StatsRepository) Summary(ctx context.Context, topN int) (model.PortalStats, error) {
	var stats model.PortalStats
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM packs),
			(SELECT COUNT(*) FROM claims),
			(SELECT COUNT(*) FROM downloads)
	`).Scan(&stats.Packs, &stats.Claims, &stats.Downloads)
	if err != nil {
		return model.PortalStats{}, fmt.Errorf("count portal rows: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, title, download_count FROM packs
		 ORDER BY download_count DESC, id
		 LIMIT $1`, topN)
	if err != nil {
		return model.PortalStats{}, fmt.Errorf("query top packs: %w", err)
	}
	defer rows.Close()

	stats.TopPacks = make([]model.PackDownloadStat, 0, topN)
	for rows.Next() {
		var s model.PackDownloadStat
		if err := rows.Scan(&s.PackID, &s.Title, &s.DownloadCount); err != nil {
			return model.PortalStats{}, fmt.Errorf("scan top pack: %w", err)
		}
		stats.TopPacks = append(stats.TopPacks, s)
	}
	return stats, rows.Err()
}
