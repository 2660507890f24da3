package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"relaybot/internal/domain"
)

const userColumns = `user_id, display_name, language, dialect, location, paired_with, connection_code, connection_code_expiry, created_at, updated_at`

// UserRepo implements repository.UserRepository
type UserRepo struct {
	db DBTX
	// forUpdate appends FOR UPDATE to lookups; only meaningful inside a transaction
	forUpdate bool
}

// NewUserRepo creates a new user repository
func NewUserRepo(db DBTX) *UserRepo {
	return &UserRepo{db: db}
}

func newLockingUserRepo(tx DBTX) *UserRepo {
	return &UserRepo{db: tx, forUpdate: true}
}

func (r *UserRepo) lockClause() string {
	if r.forUpdate {
		return " FOR UPDATE"
	}
	return ""
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.UserProfile, error) {
	var (
		u          domain.UserProfile
		pairedWith sql.NullInt64
		code       sql.NullString
		expiry     sql.NullTime
	)
	err := row.Scan(
		&u.UserID, &u.DisplayName, &u.Language, &u.Dialect, &u.Location,
		&pairedWith, &code, &expiry, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if pairedWith.Valid {
		u.PairedWith = &pairedWith.Int64
	}
	if code.Valid {
		u.ConnectionCode = &code.String
	}
	if expiry.Valid {
		u.ConnectionCodeExpiry = &expiry.Time
	}
	return &u, nil
}

// FindByUserID returns the profile or nil if it does not exist
func (r *UserRepo) FindByUserID(ctx context.Context, userID int64) (*domain.UserProfile, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1` + r.lockClause()

	u, err := scanUser(r.db.QueryRowContext(ctx, query, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// FindByConnectionCode returns the owner of a code that is still valid at now, or nil
func (r *UserRepo) FindByConnectionCode(ctx context.Context, code string, now time.Time) (*domain.UserProfile, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE connection_code = $1 AND connection_code_expiry >= $2` + r.lockClause()

	u, err := scanUser(r.db.QueryRowContext(ctx, query, code, now))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// UpsertLanguage creates the profile or overwrites its language and display name
func (r *UserRepo) UpsertLanguage(ctx context.Context, userID int64, language, displayName string) (*domain.UserProfile, error) {
	query := `
		INSERT INTO users (user_id, language, display_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id)
		DO UPDATE SET language = EXCLUDED.language, display_name = EXCLUDED.display_name, updated_at = NOW()
		RETURNING ` + userColumns

	return scanUser(r.db.QueryRowContext(ctx, query, userID, language, displayName))
}

// UpdatePreference sets dialect or location on an existing profile
func (r *UserRepo) UpdatePreference(ctx context.Context, userID int64, field domain.PreferenceField, value string) (*domain.UserProfile, error) {
	var column string
	switch field {
	case domain.PreferenceDialect:
		column = "dialect"
	case domain.PreferenceLocation:
		column = "location"
	default:
		return nil, fmt.Errorf("unknown preference field %q", field)
	}

	query := `UPDATE users SET ` + column + ` = $2, updated_at = NOW() WHERE user_id = $1 RETURNING ` + userColumns

	u, err := scanUser(r.db.QueryRowContext(ctx, query, userID, value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// SetPairing sets or clears paired_with on a single profile
func (r *UserRepo) SetPairing(ctx context.Context, userID int64, partnerID *int64) error {
	var partner sql.NullInt64
	if partnerID != nil {
		partner = sql.NullInt64{Int64: *partnerID, Valid: true}
	}

	query := `UPDATE users SET paired_with = $2, updated_at = NOW() WHERE user_id = $1`
	res, err := r.db.ExecContext(ctx, query, userID, partner)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// SetConnectionCode stores a code on the profile, replacing any previous one
func (r *UserRepo) SetConnectionCode(ctx context.Context, userID int64, code string, expiry time.Time) error {
	query := `UPDATE users SET connection_code = $2, connection_code_expiry = $3, updated_at = NOW() WHERE user_id = $1`
	res, err := r.db.ExecContext(ctx, query, userID, code, expiry)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// ClearConnectionCode removes the outstanding code from the profile
func (r *UserRepo) ClearConnectionCode(ctx context.Context, userID int64) error {
	query := `UPDATE users SET connection_code = NULL, connection_code_expiry = NULL, updated_at = NOW() WHERE user_id = $1`
	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// IsCodeActive reports whether any profile holds the code unexpired at now
func (r *UserRepo) IsCodeActive(ctx context.Context, code string, now time.Time) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE connection_code = $1 AND connection_code_expiry >= $2)`

	var exists bool
	err := r.db.QueryRowContext(ctx, query, code, now).Scan(&exists)
	return exists, err
}

// ClearExpiredCodes removes codes that expired before now
func (r *UserRepo) ClearExpiredCodes(ctx context.Context, now time.Time) (int64, error) {
	query := `UPDATE users SET connection_code = NULL, connection_code_expiry = NULL WHERE connection_code_expiry < $1`
	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
