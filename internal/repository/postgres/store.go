package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"relaybot/internal/repository"
)

// DBTX is the subset of database/sql shared by *sql.DB and *sql.Tx
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements repository.Store on PostgreSQL
type Store struct {
	db          *sql.DB
	users       *UserRepo
	transcripts *TranscriptRepo
}

// NewStore creates a new PostgreSQL store
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:          db,
		users:       NewUserRepo(db),
		transcripts: NewTranscriptRepo(db),
	}
}

// Users returns the non-transactional user repository
func (s *Store) Users() repository.UserRepository {
	return s.users
}

// Transcripts returns the transcript repository
func (s *Store) Transcripts() repository.TranscriptRepository {
	return s.transcripts
}

// WithinTx runs fn in a transaction; profiles read inside are locked with FOR UPDATE
func (s *Store) WithinTx(ctx context.Context, fn repository.TxFunc) error {
	return withTx(ctx, s.db, func(ctx context.Context, tx DBTX) error {
		return fn(ctx, newLockingUserRepo(tx))
	})
}

// BulkReset deletes all transcripts and profiles in one transaction
func (s *Store) BulkReset(ctx context.Context) error {
	return withTx(ctx, s.db, func(ctx context.Context, tx DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM transcripts`); err != nil {
			return fmt.Errorf("delete transcripts: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM users`); err != nil {
			return fmt.Errorf("delete users: %w", err)
		}
		return nil
	})
}

// Ping checks database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// withTx commits on success and rolls back on error or panic
func withTx(ctx context.Context, db *sql.DB, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(ctx, tx)
	return err
}
