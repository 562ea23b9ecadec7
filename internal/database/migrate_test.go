package database

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	value any
	err   error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	switch d := dest[0].(type) {
	case *bool:
		*d = r.value.(bool)
	case *int64:
		*d = r.value.(int64)
	}
	return nil
}

type fakeSchema struct {
	hasIndex   bool
	duplicates int64
	countErr   error
	executed   []string
}

func (f *fakeSchema) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	if strings.Contains(sql, "pg_indexes") {
		return fakeRow{value: f.hasIndex}
	}
	return fakeRow{value: f.duplicates, err: f.countErr}
}

func (f *fakeSchema) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.executed = append(f.executed, sql)
	return pgconn.NewCommandTag("CREATE INDEX"), nil
}

func TestApplyClaimUniqueness(t *testing.T) {
	t.Run("index already present", func(t *testing.T) {
		schema := &fakeSchema{hasIndex: true, duplicates: 3}

		require.NoError(t, applyClaimUniqueness(context.Background(), schema))
		assert.Empty(t, schema.executed)
	})

	t.Run("creates index on clean table", func(t *testing.T) {
		schema := &fakeSchema{}

		require.NoError(t, applyClaimUniqueness(context.Background(), schema))
		require.Len(t, schema.executed, 1)
		assert.Contains(t, schema.executed[0], "CREATE UNIQUE INDEX")
	})

	t.Run("duplicates stop startup and nothing is deleted", func(t *testing.T) {
		schema := &fakeSchema{duplicates: 2}

		err := applyClaimUniqueness(context.Background(), schema)

		var dupErr *DuplicateClaimsError
		require.ErrorAs(t, err, &dupErr)
		assert.Equal(t, int64(2), dupErr.Pairs)
		assert.Empty(t, schema.executed)
	})

	t.Run("count failure", func(t *testing.T) {
		schema := &fakeSchema{countErr: errors.New("connection reset")}

		err := applyClaimUniqueness(context.Background(), schema)
		require.ErrorContains(t, err, "count duplicate claims")
		assert.Empty(t, schema.executed)
	})
}

func TestClaimUniquenessSQLNeverDeletes(t *testing.T) {
	assert.NotContains(t, strings.ToUpper(claimUniquenessSQL), "DELETE")
}
