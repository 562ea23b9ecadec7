package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"pack-portal/internal/model"
)

type DownloadRepository struct {
	pool *pgxpool.Pool
}

func NewDownloadRepository(pool *pgxpool.Pool) *DownloadRepository {
	return &DownloadRepository{pool: pool}
}

func (r *DownloadRepository) Create(ctx context.Context, d model.Download) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO downloads (id, claim_id, pack_id, user_id, downloaded_at, ip_address, user_agent)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''))`,
		d.ID, d.ClaimID, d.PackID, d.UserID, d.DownloadedAt, d.IPAddress, d.UserAgent)
	if err != nil {
		return fmt.Errorf("record download: %w", err)
	}
	return nil
}
