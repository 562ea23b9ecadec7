package database

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

//go:embed migrations/001_initial.up.sql
var initialMigrationSQL string

//go:embed migrations/002_claim_uniqueness.up.sql
var claimUniquenessSQL string

const duplicateClaimPairsSQL = `
	SELECT COUNT(*) FROM (
		SELECT 1 FROM claims GROUP BY pack_id, user_id HAVING COUNT(*) > 1
	) d`

// Logged for the operator when the index cannot be created.
const duplicateClaimRowsSQL = `SELECT pack_id, user_id, array_agg(id ORDER BY claimed_at) FROM claims GROUP BY pack_id, user_id HAVING COUNT(*) > 1`

var requiredTables = []string{
	"packs",
	"claims",
	"downloads",
}

func (db *DB) EnsureSchema(ctx context.Context) error {
	if db == nil || db.Pool == nil {
		return fmt.Errorf("database pool is not initialized")
	}

	exists, err := db.hasAllRequiredTables(ctx)
	if err != nil {
		return fmt.Errorf("check existing tables: %w", err)
	}

	if !exists {
		slog.Info("database schema missing tables; applying initial migration")
		if _, err := db.Pool.Exec(ctx, initialMigrationSQL); err != nil {
			return fmt.Errorf("apply initial migration: %w", err)
		}

		exists, err = db.hasAllRequiredTables(ctx)
		if err != nil {
			return fmt.Errorf("re-check tables after migration: %w", err)
		}

		if !exists {
			return fmt.Errorf("schema initialization incomplete: required tables are still missing")
		}
	}

	// 002: tables provisioned by the old setup scripts lack the claim
	// uniqueness constraint.
	if err := applyClaimUniqueness(ctx, db.Pool); err != nil {
		return fmt.Errorf("apply claim uniqueness migration: %w", err)
	}

	slog.Info("database schema ensured")
	return nil
}

// execQuerier is the subset of pgxpool.Pool the claim uniqueness step needs.
type execQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// DuplicateClaimsError reports claim pairs that block the uniqueness index.
// Claims are never removed automatically; an operator resolves them.
type DuplicateClaimsError struct {
	Pairs int64
}

func (e *DuplicateClaimsError) Error() string {
	return fmt.Sprintf("%d (pack_id, user_id) pairs have more than one claim; resolve them before starting", e.Pairs)
}

func applyClaimUniqueness(ctx context.Context, q execQuerier) error {
	var hasIndex bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM pg_indexes
			WHERE schemaname = 'public'
			  AND tablename = 'claims'
			  AND indexname = 'claims_pack_user_key'
		)
	`).Scan(&hasIndex)
	if err != nil {
		return fmt.Errorf("check claims_pack_user_key index: %w", err)
	}

	if hasIndex {
		return nil
	}

	var duplicates int64
	err = q.QueryRow(ctx, duplicateClaimPairsSQL).Scan(&duplicates)
	if err != nil {
		return fmt.Errorf("count duplicate claims: %w", err)
	}

	if duplicates > 0 {
		slog.Error("claims table holds duplicate claims",
			"pairs", duplicates,
			"query", duplicateClaimRowsSQL)
		return &DuplicateClaimsError{Pairs: duplicates}
	}

	slog.Info("applying claim uniqueness migration (002)")
	if _, err := q.Exec(ctx, claimUniquenessSQL); err != nil {
		return fmt.Errorf("exec claim uniqueness SQL: %w", err)
	}
	slog.Info("claim uniqueness migration applied")

	return nil
}

func (db *DB) hasAllRequiredTables(ctx context.Context) (bool, error) {
	var count int
	err := db.Pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM information_schema.tables
		WHERE table_schema = 'public'
		  AND table_name = ANY($1)
	`, requiredTables).Scan(&count)
	if err != nil {
		return false, err
	}

	return count == len(requiredTables), nil
}
