package store

import (
	"database/sql"
	"fmt"
)

// WithTx runs fn inside a BEGIN IMMEDIATE transaction, committing on
// success and rolling back on error or panic. The Indexer Workflow uses
// this for the per-file mutation batch required by §4.4's ordering
// guarantee: a crashed index leaves either the old or the fully new state
// for a file, never a partial mix.
func (s *Store) WithTx(fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}
