package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"relaybot/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestStore_WithinTx_CommitsOnSuccess(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	store := NewStore(db)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM users WHERE user_id = \\$1 FOR UPDATE").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(1, "alice", "en", "default", "unknown", nil, nil, nil, now, now))
	mock.ExpectExec("UPDATE users SET paired_with = \\$2").
		WithArgs(int64(1), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = store.WithinTx(context.Background(), func(ctx context.Context, users repository.UserRepository) error {
		u, err := users.FindByUserID(ctx, 1)
		if err != nil {
			return err
		}
		partner := int64(2)
		return users.SetPairing(ctx, u.UserID, &partner)
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithinTx_RollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	store := NewStore(db)
	partner := int64(2)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users SET paired_with = \\$2").
		WithArgs(int64(1), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE users SET paired_with = \\$2").
		WithArgs(int64(2), int64(1)).
		WillReturnError(errors.New("connection lost"))
	mock.ExpectRollback()

	err = store.WithinTx(context.Background(), func(ctx context.Context, users repository.UserRepository) error {
		if err := users.SetPairing(ctx, 1, &partner); err != nil {
			return err
		}
		self := int64(1)
		return users.SetPairing(ctx, 2, &self)
	})

	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithinTx_RollsBackOnPanic(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	store := NewStore(db)

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = store.WithinTx(context.Background(), func(ctx context.Context, users repository.UserRepository) error {
			panic("boom")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithinTx_BeginFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	store := NewStore(db)
	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	called := false
	err = store.WithinTx(context.Background(), func(ctx context.Context, users repository.UserRepository) error {
		called = true
		return nil
	})

	assert.Error(t, err)
	assert.False(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_BulkReset(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	store := NewStore(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM transcripts").WillReturnResult(sqlmock.NewResult(0, 10))
	mock.ExpectExec("DELETE FROM users").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err = store.BulkReset(context.Background())

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_BulkReset_RollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	store := NewStore(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM transcripts").WillReturnResult(sqlmock.NewResult(0, 10))
	mock.ExpectExec("DELETE FROM users").WillReturnError(errors.New("lock timeout"))
	mock.ExpectRollback()

	err = store.BulkReset(context.Background())

	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
