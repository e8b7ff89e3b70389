package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
)

// AccountRepository persists accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *Account) error
	GetByUsername(ctx context.Context, username string) (*Account, error)
	GetByCredentials(ctx context.Context, username, recoverySecret string) (*Account, error)
	UpdatePassword(ctx context.Context, username, passwordHash string) error
}

// SQLiteAccountRepository implements AccountRepository on the accounts table.
type SQLiteAccountRepository struct {
	db *sql.DB
}

// NewAccountRepository creates a SQLite-backed account repository.
func NewAccountRepository(db *sql.DB) *SQLiteAccountRepository {
	return &SQLiteAccountRepository{db: db}
}

const accountColumns = "id, username, password_hash, recovery_secret, role, created_at"

// Create inserts an account and sets its ID and CreatedAt. A duplicate
// username returns ErrUsernameExists, a duplicate recovery secret
// ErrRecoverySecretExists.
func (r *SQLiteAccountRepository) Create(ctx context.Context, account *Account) error {
	if account.Role == "" {
		account.Role = DefaultRole
	}
	now := time.Now().UTC().Truncate(time.Second)

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (username, password_hash, recovery_secret, role, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		account.Username, account.PasswordHash, account.RecoverySecret,
		string(account.Role), now.Format(time.RFC3339),
	)
	if err != nil {
		if column, ok := uniqueViolation(err); ok {
			if column == "accounts.recovery_secret" {
				return ErrRecoverySecretExists
			}
			return ErrUsernameExists
		}
		return fmt.Errorf("creating account: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading account id: %w", err)
	}
	account.ID = id
	account.CreatedAt = now
	return nil
}

// GetByUsername returns the account with the given username.
func (r *SQLiteAccountRepository) GetByUsername(ctx context.Context, username string) (*Account, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE username = ?", username)
	return scanAccount(row)
}

// GetByCredentials returns the account matching both username and
// recovery secret exactly.
func (r *SQLiteAccountRepository) GetByCredentials(ctx context.Context, username, recoverySecret string) (*Account, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE username = ? AND recovery_secret = ?",
		username, recoverySecret)
	return scanAccount(row)
}

// UpdatePassword overwrites the stored hash for username.
func (r *SQLiteAccountRepository) UpdatePassword(ctx context.Context, username, passwordHash string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE accounts SET password_hash = ? WHERE username = ?", passwordHash, username)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func scanAccount(row *sql.Row) (*Account, error) {
	var a Account
	var role, createdAt string
	err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.RecoverySecret, &role, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("scanning account: %w", err)
	}
	a.Role = Role(role)
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // written by Create in RFC 3339
	return &a, nil
}

// uniqueViolation reports whether err is a SQLite UNIQUE constraint
// failure and, if so, which table.column it hit.
func uniqueViolation(err error) (string, bool) {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) || sqliteErr.ExtendedCode != sqlite3.ErrConstraintUnique {
		return "", false
	}
	// "UNIQUE constraint failed: accounts.username"
	_, column, _ := strings.Cut(sqliteErr.Error(), "UNIQUE constraint failed: ")
	return strings.TrimSpace(column), true
}
