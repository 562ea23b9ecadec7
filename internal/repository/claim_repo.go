package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"pack-portal/internal/model"
)

const uniqueViolation = "23505"

type ClaimRepository struct {
	pool *pgxpool.Pool
}

func NewClaimRepository(pool *pgxpool.Pool) *ClaimRepository {
	return &ClaimRepository{pool: pool}
}

// Create inserts a claim. A second claim for the same (pack, user) pair is
// reported as model.ErrClaimExists.
func (r *ClaimRepository) Create(ctx context.Context, claim model.Claim) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO claims (id, pack_id, user_id, discord_user_id, discord_username, claimed_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		claim.ID, claim.PackID, claim.UserID, claim.DiscordUserID, claim.DiscordUsername, claim.ClaimedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return model.ErrClaimExists
		}
		return fmt.Errorf("create claim: %w", err)
	}
	return nil
}

func (r *ClaimRepository) GetByID(ctx context.Context, id string) (model.Claim, error) {
	return r.getOne(ctx,
		`SELECT id, pack_id, user_id, discord_user_id, discord_username, claimed_at
		 FROM claims WHERE id = $1`, id)
}

func (r *ClaimRepository) FindByPackAndUser(ctx context.Context, packID string, userID string) (model.Claim, error) {
	return r.getOne(ctx,
		`SELECT id, pack_id, user_id, discord_user_id, discord_username, claimed_at
		 FROM claims WHERE pack_id = $1 AND user_id = $2`, packID, userID)
}

func (r *ClaimRepository) getOne(ctx context.Context, query string, args ...any) (model.Claim, error) {
	var c model.Claim
	err := r.pool.QueryRow(ctx, query, args...).
		Scan(&c.ID, &c.PackID, &c.UserID, &c.DiscordUserID, &c.DiscordUsername, &c.ClaimedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.Claim{}, model.ErrClaimNotFound
	}
	if err != nil {
		return model.Claim{}, fmt.Errorf("get claim: %w", err)
	}
	return c, nil
}
