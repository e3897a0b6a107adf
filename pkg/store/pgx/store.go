// Package pgx implements ResolverStorage on PostgreSQL. Fuzzy recall is
// pushed into the database via the pg_trgm similarity() function so the
// candidate set never leaves SQL.
package pgx

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/podgraph/backend/pkg/store"
)

var _ store.ResolverStorage = (*ResolverDBStorage)(nil)

// DBConn is the subset of pgx used by the storage layer. It is
// satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx alike.
type DBConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ResolverDBStorage is the Postgres-backed implementation of
// store.ResolverStorage.
type ResolverDBStorage struct {
	conn DBConn
}

// NewResolverDBStorage wraps an open connection or pool.
func NewResolverDBStorage(conn DBConn) *ResolverDBStorage {
	return &ResolverDBStorage{conn: conn}
}
