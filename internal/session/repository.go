package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrDuplicateEmail is returned by Create when the email is already
// registered.
var ErrDuplicateEmail = errors.New("email already registered")

const pgUniqueViolation = "23505"

const userColumns = `id, email, password_hash, refresh_token, firstname, lastname, dob, address, created_at, updated_at`

// Repository is the credential store: one row per user, holding the password
// hash, profile fields and the single live refresh token. Every method is an
// atomic single-row read or write; the row write is the only serialization
// point between concurrent requests for the same user.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE email = $1
	`, email)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, err
		}
		return User{}, fmt.Errorf("query user by email: %w", err)
	}

	return user, nil
}

func (r *Repository) GetByRefreshToken(ctx context.Context, refreshToken string) (User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE refresh_token = $1
	`, refreshToken)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, err
		}
		return User{}, fmt.Errorf("query user by refresh token: %w", err)
	}

	return user, nil
}

// Create inserts a new user row. Email uniqueness is enforced by the unique
// constraint, so concurrent registrations cannot race past the existence
// check.
func (r *Repository) Create(ctx context.Context, email, passwordHash string) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate user id: %w", err)
	}

	now := time.Now().UTC()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
	`, id.String(), email, passwordHash, now)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// SetRefreshToken overwrites the stored refresh token in place; passing nil
// clears it. Returns sql.ErrNoRows when the email does not exist.
func (r *Repository) SetRefreshToken(ctx context.Context, email string, refreshToken *string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET refresh_token = $2, updated_at = $3
		WHERE email = $1
	`, email, refreshToken, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set refresh token: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set refresh token rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// ClearRefreshToken nulls the stored token matching the exact presented
// value and reports how many rows changed. Zero means the token was already
// rotated or revoked.
func (r *Repository) ClearRefreshToken(ctx context.Context, refreshToken string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET refresh_token = NULL, updated_at = $2
		WHERE refresh_token = $1
	`, refreshToken, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("clear refresh token: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear refresh token rows affected: %w", err)
	}

	return affected, nil
}

func (r *Repository) UpdateProfile(ctx context.Context, email string, fields ProfileFields) (ProfileFields, error) {
	var updated ProfileFields
	err := r.db.QueryRowContext(ctx, `
		UPDATE users
		SET firstname = $2, lastname = $3, dob = $4, address = $5, updated_at = $6
		WHERE email = $1
		RETURNING firstname, lastname, dob, address
	`, email, fields.Firstname, fields.Lastname, fields.DOB, fields.Address, time.Now().UTC()).
		Scan(&updated.Firstname, &updated.Lastname, &updated.DOB, &updated.Address)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ProfileFields{}, err
		}
		return ProfileFields{}, fmt.Errorf("update profile: %w", err)
	}

	return updated, nil
}

// LiveRefreshTokens lists up to limit stored refresh tokens for the
// maintenance sweep.
func (r *Repository) LiveRefreshTokens(ctx context.Context, limit int) ([]StoredToken, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT email, refresh_token
		FROM users
		WHERE refresh_token IS NOT NULL
		ORDER BY updated_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query live refresh tokens: %w", err)
	}
	defer rows.Close()

	tokens := make([]StoredToken, 0)
	for rows.Next() {
		var t StoredToken
		if err := rows.Scan(&t.Email, &t.RefreshToken); err != nil {
			return nil, fmt.Errorf("scan live refresh token: %w", err)
		}
		tokens = append(tokens, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate live refresh tokens: %w", err)
	}

	return tokens, nil
}

func scanUser(row *sql.Row) (User, error) {
	var user User
	var refreshToken, firstname, lastname, dob, address sql.NullString

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&refreshToken,
		&firstname,
		&lastname,
		&dob,
		&address,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return User{}, err
	}

	user.RefreshToken = nullableString(refreshToken)
	user.Firstname = nullableString(firstname)
	user.Lastname = nullableString(lastname)
	user.DOB = nullableString(dob)
	user.Address = nullableString(address)

	return user, nil
}

func nullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	value := v.String
	return &value
}
