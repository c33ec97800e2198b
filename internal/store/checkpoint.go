// checkpoint.go implements WAL checkpointing.
//
// Design: TRUNCATE mode fully flushes the WAL and removes the -wal/-shm
// files. The CLI checkpoints on exit and `pim serve` on shutdown, so the
// data directory holds a single database file between runs.

package store

import (
	"context"
	"fmt"
)

// Checkpoint writes all WAL data back to the main database file and truncates
// the WAL.
func (s *SQLiteStore) Checkpoint(ctx context.Context) error {
	return s.withConn(ctx, func(q querier) error {
		if _, err := q.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
			return fmt.Errorf("WAL checkpoint: %w", err)
		}
		return nil
	})
}
