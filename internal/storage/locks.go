package db

import (
	"context"
	"errors"
	"fmt"
)

var errLockHeld = errors.New("advisory lock held by another session")

// TryAcquireRunLock takes the run advisory lock on a dedicated connection.
// The returned release func unlocks and returns the connection to the pool.
// acquired is false when another instance holds the lock.
func (db *DB) TryAcquireRunLock(ctx context.Context) (release func(), acquired bool, err error) {
	release, err = db.acquireLock(ctx, RunLockID, false)
	if err != nil {
		if errors.Is(err, errLockHeld) {
			return func() {}, false, nil
		}

		return nil, false, err
	}

	return release, true, nil
}

func (db *DB) acquireLock(ctx context.Context, lockID int64, wait bool) (func(), error) {
	if db.Pool == nil {
		return nil, ErrNotOpen
	}

	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if wait {
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", lockID); err != nil {
			conn.Release()

			return nil, fmt.Errorf("acquire advisory lock: %w", err)
		}
	} else {
		var ok bool
		if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", lockID).Scan(&ok); err != nil {
			conn.Release()

			return nil, fmt.Errorf("try acquire advisory lock: %w", err)
		}

		if !ok {
			conn.Release()

			return nil, errLockHeld
		}
	}

	return func() {
		//nolint:errcheck,contextcheck // unlock is best-effort, the lock dies with the session anyway
		_, _ = conn.Exec(context.Background(), "SELECT pg_advisory_unlock($1)", lockID)
		conn.Release()
	}, nil
}
