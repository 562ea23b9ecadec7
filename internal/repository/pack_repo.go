package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pack-portal/internal/model"
)

const packColumns = `id, title, description, file_url, file_size, is_premium, tags,
	download_count, created_at, updated_at`

type PackRepository struct {
	pool *pgxpool.Pool
}

func NewPackRepository(pool *pgxpool.Pool) *PackRepository {
	return &PackRepository{pool: pool}
}

func (r *PackRepository) GetByID(ctx context.Context, id string) (model.Pack, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+packColumns+` FROM packs WHERE id = $1`, id)

	pack, err := scanPack(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Pack{}, model.ErrPackNotFound
	}
	if err != nil {
		return model.Pack{}, fmt.Errorf("get pack %q: %w", id, err)
	}
	return pack, nil
}

func (r *PackRepository) List(ctx context.Context, filter model.PackFilter) ([]model.Pack, error) {
	where := make([]string, 0, 2)
	args := make([]any, 0, 2)

	if tag := strings.TrimSpace(filter.Tag); tag != "" {
		args = append(args, tag)
		where = append(where, fmt.Sprintf("$%d = ANY(tags)", len(args)))
	}
	if filter.Premium != nil {
		args = append(args, *filter.Premium)
		where = append(where, fmt.Sprintf("is_premium = $%d", len(args)))
	}

	query := `SELECT ` + packColumns + ` FROM packs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list packs: %w", err)
	}
	defer rows.Close()

	packs := make([]model.Pack, 0)
	for rows.Next() {
		pack, scanErr := scanPack(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan pack: %w", scanErr)
		}
		packs = append(packs, pack)
	}
	return packs, rows.Err()
}

// IncrementDownloadCount bumps the counter inside the database so concurrent
// redemptions of the same pack never lose an update.
func (r *PackRepository) IncrementDownloadCount(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE packs SET download_count = download_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment download count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrPackNotFound
	}
	return nil
}

// Upsert inserts or refreshes a pack's published fields. download_count and
// created_at are left untouched on conflict.
func (r *PackRepository) Upsert(ctx context.Context, pack model.Pack) error {
	tags := pack.Tags
	if tags == nil {
		tags = []string{}
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO packs (id, title, description, file_url, file_size, is_premium, tags)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
		   title = EXCLUDED.title,
		   description = EXCLUDED.description,
		   file_url = EXCLUDED.file_url,
		   file_size = EXCLUDED.file_size,
		   is_premium = EXCLUDED.is_premium,
		   tags = EXCLUDED.tags,
		   updated_at = now()`,
		pack.ID, pack.Title, pack.Description, pack.FileURL, pack.FileSize, pack.IsPremium, tags)
	if err != nil {
		return fmt.Errorf("upsert pack %q: %w", pack.ID, err)
	}
	return nil
}

func scanPack(row pgx.Row) (model.Pack, error) {
	var p model.Pack
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.FileURL, &p.FileSize, &p.IsPremium,
		&p.Tags, &p.DownloadCount, &p.CreatedAt, &p.UpdatedAt)
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return p, err
}
