package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"relaybot/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userRowColumns = []string{
	"user_id", "display_name", "language", "dialect", "location",
	"paired_with", "connection_code", "connection_code_expiry", "created_at", "updated_at",
}

func TestUserRepo_FindByUserID(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	expiry := now.Add(10 * time.Minute)

	tests := []struct {
		name          string
		userID        int64
		mockRows      *sqlmock.Rows
		mockError     error
		expectedNil   bool
		expectedError bool
		check         func(t *testing.T, u *domain.UserProfile)
	}{
		{
			name:   "unpaired user",
			userID: 123,
			mockRows: sqlmock.NewRows(userRowColumns).
				AddRow(123, "alice", "en", "default", "unknown", nil, nil, nil, now, now),
			check: func(t *testing.T, u *domain.UserProfile) {
				assert.Equal(t, "en", u.Language)
				assert.Nil(t, u.PairedWith)
				assert.Nil(t, u.ConnectionCode)
			},
		},
		{
			name:   "paired user with code",
			userID: 123,
			mockRows: sqlmock.NewRows(userRowColumns).
				AddRow(123, "alice", "en", "texan", "Austin", 456, "ABC123XY", expiry, now, now),
			check: func(t *testing.T, u *domain.UserProfile) {
				require.NotNil(t, u.PairedWith)
				assert.Equal(t, int64(456), *u.PairedWith)
				require.NotNil(t, u.ConnectionCode)
				assert.Equal(t, "ABC123XY", *u.ConnectionCode)
				require.NotNil(t, u.ConnectionCodeExpiry)
				assert.True(t, expiry.Equal(*u.ConnectionCodeExpiry))
				assert.Equal(t, "texan", u.Dialect)
			},
		},
		{
			name:        "user not exists",
			userID:      789,
			mockError:   sql.ErrNoRows,
			expectedNil: true,
		},
		{
			name:          "database error",
			userID:        789,
			mockError:     errors.New("connection reset"),
			expectedNil:   true,
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			assert.NoError(t, err)
			defer db.Close()

			repo := NewUserRepo(db)

			query := "SELECT user_id, display_name, .+ FROM users WHERE user_id = \\$1$"
			if tt.mockError != nil {
				mock.ExpectQuery(query).WithArgs(tt.userID).WillReturnError(tt.mockError)
			} else {
				mock.ExpectQuery(query).WithArgs(tt.userID).WillReturnRows(tt.mockRows)
			}

			u, err := repo.FindByUserID(context.Background(), tt.userID)

			if tt.expectedError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			if tt.expectedNil {
				assert.Nil(t, u)
			} else {
				require.NotNil(t, u)
				tt.check(t, u)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepo_FindByConnectionCode(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	repo := NewUserRepo(db)

	mock.ExpectQuery("FROM users WHERE connection_code = \\$1 AND connection_code_expiry >= \\$2").
		WithArgs("ABC123XY", now).
		WillReturnError(sql.ErrNoRows)

	u, err := repo.FindByConnectionCode(context.Background(), "ABC123XY", now)

	assert.NoError(t, err)
	assert.Nil(t, u)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_UpsertLanguage(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	now := time.Now()
	repo := NewUserRepo(db)

	mock.ExpectQuery("INSERT INTO users .+ ON CONFLICT \\(user_id\\) DO UPDATE SET language = EXCLUDED.language").
		WithArgs(int64(123), "es", "alice").
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(123, "alice", "es", "default", "unknown", nil, nil, nil, now, now))

	u, err := repo.UpsertLanguage(context.Background(), 123, "es", "alice")

	assert.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "es", u.Language)
	assert.Equal(t, "alice", u.DisplayName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_UpdatePreference(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name        string
		field       domain.PreferenceField
		query       string
		mockRows    *sqlmock.Rows
		mockError   error
		expectedErr error
		expectQuery bool
	}{
		{
			name:  "dialect",
			field: domain.PreferenceDialect,
			query: "UPDATE users SET dialect = \\$2",
			mockRows: sqlmock.NewRows(userRowColumns).
				AddRow(123, "alice", "en", "scouse", "unknown", nil, nil, nil, now, now),
			expectQuery: true,
		},
		{
			name:  "location",
			field: domain.PreferenceLocation,
			query: "UPDATE users SET location = \\$2",
			mockRows: sqlmock.NewRows(userRowColumns).
				AddRow(123, "alice", "en", "default", "Liverpool", nil, nil, nil, now, now),
			expectQuery: true,
		},
		{
			name:        "missing profile",
			field:       domain.PreferenceDialect,
			query:       "UPDATE users SET dialect = \\$2",
			mockError:   sql.ErrNoRows,
			expectedErr: domain.ErrNotFound,
			expectQuery: true,
		},
		{
			name:        "unknown field",
			field:       domain.PreferenceField("shoe_size"),
			expectQuery: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			assert.NoError(t, err)
			defer db.Close()

			repo := NewUserRepo(db)
			value := "scouse"
			if tt.field == domain.PreferenceLocation {
				value = "Liverpool"
			}

			if tt.expectQuery {
				exp := mock.ExpectQuery(tt.query).WithArgs(int64(123), value)
				if tt.mockError != nil {
					exp.WillReturnError(tt.mockError)
				} else {
					exp.WillReturnRows(tt.mockRows)
				}
			}

			u, err := repo.UpdatePreference(context.Background(), 123, tt.field, value)

			switch {
			case tt.expectedErr != nil:
				assert.ErrorIs(t, err, tt.expectedErr)
			case !tt.expectQuery:
				assert.Error(t, err)
			default:
				assert.NoError(t, err)
				require.NotNil(t, u)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepo_SetPairing(t *testing.T) {
	partner := int64(456)

	tests := []struct {
		name         string
		partnerID    *int64
		expectedArg  any
		rowsAffected int64
		expectedErr  error
	}{
		{name: "pair", partnerID: &partner, expectedArg: int64(456), rowsAffected: 1},
		{name: "unpair", partnerID: nil, expectedArg: nil, rowsAffected: 1},
		{name: "missing profile", partnerID: nil, expectedArg: nil, rowsAffected: 0, expectedErr: domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			assert.NoError(t, err)
			defer db.Close()

			repo := NewUserRepo(db)

			mock.ExpectExec("UPDATE users SET paired_with = \\$2").
				WithArgs(int64(123), tt.expectedArg).
				WillReturnResult(sqlmock.NewResult(0, tt.rowsAffected))

			err = repo.SetPairing(context.Background(), 123, tt.partnerID)

			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepo_SetConnectionCode(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	expiry := time.Date(2024, 5, 1, 12, 10, 0, 0, time.UTC)
	repo := NewUserRepo(db)

	mock.ExpectExec("UPDATE users SET connection_code = \\$2, connection_code_expiry = \\$3").
		WithArgs(int64(123), "ABC123XY", expiry).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.SetConnectionCode(context.Background(), 123, "ABC123XY", expiry)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_IsCodeActive(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	repo := NewUserRepo(db)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("ABC123XY", now).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	active, err := repo.IsCodeActive(context.Background(), "ABC123XY", now)

	assert.NoError(t, err)
	assert.True(t, active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_ClearExpiredCodes(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	repo := NewUserRepo(db)

	mock.ExpectExec("UPDATE users SET connection_code = NULL, connection_code_expiry = NULL WHERE connection_code_expiry < \\$1").
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.ClearExpiredCodes(context.Background(), now)

	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
