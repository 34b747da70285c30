// Package otpinfra provides storage implementations for the OTP engine.
package otpinfra

import (
	"context"
	"database/sql"
	"time"

	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/errx"
	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/otp"
	"github.com/jmoiron/sqlx"
)

// PostgresRepository is the PostgreSQL implementation of otp.Repository.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new repository backed by the given DB.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the otp_codes table and its conflict index when
// they do not exist yet.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS otp_codes (
			id TEXT PRIMARY KEY,
			phone TEXT NOT NULL,
			country_code TEXT NOT NULL,
			code_hash TEXT NOT NULL,
			purpose TEXT NOT NULL,
			verified BOOLEAN NOT NULL DEFAULT FALSE,
			attempts INTEGER NOT NULL DEFAULT 0,
			max_attempts INTEGER NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return errx.Wrap(err, "failed to create otp_codes table", errx.TypeInternal)
	}

	indexQuery := `
		CREATE UNIQUE INDEX IF NOT EXISTS idx_otp_codes_phone_purpose
		ON otp_codes (phone, country_code, purpose)`

	if _, err := r.db.ExecContext(ctx, indexQuery); err != nil {
		return errx.Wrap(err, "failed to create otp_codes index", errx.TypeInternal)
	}
	return nil
}

type recordPersistence struct {
	ID          string    `db:"id"`
	Phone       string    `db:"phone"`
	CountryCode string    `db:"country_code"`
	CodeHash    string    `db:"code_hash"`
	Purpose     string    `db:"purpose"`
	Verified    bool      `db:"verified"`
	Attempts    int       `db:"attempts"`
	MaxAttempts int       `db:"max_attempts"`
	ExpiresAt   time.Time `db:"expires_at"`
	CreatedAt   time.Time `db:"created_at"`
}

func toPersistence(r *otp.Record) recordPersistence {
	return recordPersistence{
		ID:          r.ID,
		Phone:       r.Phone,
		CountryCode: r.CountryCode,
		CodeHash:    r.CodeHash,
		Purpose:     string(r.Purpose),
		Verified:    r.Verified,
		Attempts:    r.Attempts,
		MaxAttempts: r.MaxAttempts,
		ExpiresAt:   r.ExpiresAt,
		CreatedAt:   r.CreatedAt,
	}
}

func toDomain(p recordPersistence) *otp.Record {
	return &otp.Record{
		ID:          p.ID,
		Phone:       p.Phone,
		CountryCode: p.CountryCode,
		CodeHash:    p.CodeHash,
		Purpose:     otp.Purpose(p.Purpose),
		Verified:    p.Verified,
		Attempts:    p.Attempts,
		MaxAttempts: p.MaxAttempts,
		ExpiresAt:   p.ExpiresAt,
		CreatedAt:   p.CreatedAt,
	}
}

// Upsert stores the record. The unique index on (phone, country_code,
// purpose) makes the conflict branch replace any prior code for the key,
// resetting the attempt budget.
func (r *PostgresRepository) Upsert(ctx context.Context, record *otp.Record) error {
	query := `
		INSERT INTO otp_codes (
			id, phone, country_code, code_hash, purpose,
			verified, attempts, max_attempts, expires_at, created_at
		) VALUES (
			:id, :phone, :country_code, :code_hash, :purpose,
			:verified, :attempts, :max_attempts, :expires_at, :created_at
		)
		ON CONFLICT (phone, country_code, purpose) DO UPDATE SET
			id = EXCLUDED.id,
			code_hash = EXCLUDED.code_hash,
			verified = EXCLUDED.verified,
			attempts = EXCLUDED.attempts,
			max_attempts = EXCLUDED.max_attempts,
			expires_at = EXCLUDED.expires_at,
			created_at = EXCLUDED.created_at`

	_, err := r.db.NamedExecContext(ctx, query, toPersistence(record))
	if err != nil {
		return errx.Wrap(err, "failed to upsert OTP record", errx.TypeInternal).
			WithDetail("phone", record.Phone)
	}
	return nil
}

// GetLatest returns the record for phone+countryCode+purpose, terminal
// or not.
func (r *PostgresRepository) GetLatest(ctx context.Context, phone, countryCode string, purpose otp.Purpose) (*otp.Record, error) {
	var p recordPersistence
	query := `SELECT * FROM otp_codes WHERE phone = $1 AND country_code = $2 AND purpose = $3`
	err := r.db.GetContext(ctx, &p, query, phone, countryCode, string(purpose))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, otp.ErrNoActiveOTP()
		}
		return nil, errx.Wrap(err, "failed to load OTP record", errx.TypeInternal).
			WithDetail("phone", phone)
	}
	return toDomain(p), nil
}

// Update persists attempt and verification state changes.
func (r *PostgresRepository) Update(ctx context.Context, record *otp.Record) error {
	query := `
		UPDATE otp_codes SET
			verified = :verified,
			attempts = :attempts
		WHERE id = :id`

	result, err := r.db.NamedExecContext(ctx, query, toPersistence(record))
	if err != nil {
		return errx.Wrap(err, "failed to update OTP record", errx.TypeInternal).
			WithDetail("otp_id", record.ID)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected on update", errx.TypeInternal)
	}
	if rowsAffected == 0 {
		return otp.ErrNoActiveOTP()
	}
	return nil
}

// DeleteExpired removes records whose validity window closed more than an
// hour ago. Recently expired records are kept so verification can still
// report "expired" rather than "not found".
func (r *PostgresRepository) DeleteExpired(ctx context.Context) error {
	query := `DELETE FROM otp_codes WHERE expires_at < $1`
	_, err := r.db.ExecContext(ctx, query, time.Now().Add(-time.Hour))
	if err != nil {
		return errx.Wrap(err, "failed to delete expired OTP records", errx.TypeInternal)
	}
	return nil
}
