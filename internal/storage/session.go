package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/lueurxax/channel-curator/internal/core/ports"
)

var _ ports.SessionFactory = (*DB)(nil)

var _ ports.ItemSession = (*Session)(nil)

// Session pins one pooled connection for a pass. Reads run directly on
// the connection, writes run inside their own transaction.
type Session struct {
	conn   *pgxpool.Conn
	logger *zerolog.Logger
}

// OpenSession acquires a connection from the pool.
func (db *DB) OpenSession(ctx context.Context) (ports.ItemSession, error) {
	if db.Pool == nil {
		return nil, ErrNotOpen
	}

	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire session connection: %w", err)
	}

	return &Session{conn: conn, logger: db.Logger}, nil
}

// Close returns the connection to the pool.
func (s *Session) Close() {
	if s.conn != nil {
		s.conn.Release()
		s.conn = nil
	}
}

// withTx runs fn in a transaction, committing on success and rolling back
// on any error.
func (s *Session) withTx(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if err == nil {
			return
		}

		if rbErr := tx.Rollback(ctx); rbErr != nil {
			s.logger.Error().Err(rbErr).Msg("rollback failed")
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
