package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BradenHooton/rebelbudget/internal/database"
	"github.com/BradenHooton/rebelbudget/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id::text, email, password_hash, full_name, role, is_active, is_verified,
	failed_login_attempts, locked_until, last_login, created_at, updated_at`

type UserRepository struct {
	db   *database.DB
	pool *pgxpool.Pool
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db, pool: db.Pool}
}

// rowScanner interface for scanning user rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanUserRow populates a User model from a database row
func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User

	err := scanner.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.FullName, &user.Role,
		&user.IsActive, &user.IsVerified,
		&user.FailedLoginAttempts, &user.LockedUntil, &user.LastLogin,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &user, nil
}

// scanUserRows iterates through rows and scans each into User models
func scanUserRows(rows pgx.Rows) ([]*models.User, error) {
	defer rows.Close()

	users := make([]*models.User, 0)

	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return users, nil
}

// NormalizeEmail lower-cases and trims an email for storage and lookup
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, NormalizeEmail(email)))
}

// Create inserts a new account. A duplicate email fails with models.ErrEmailTaken.
func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if user.Role == "" {
		user.Role = models.RoleUser
	}

	query := `
		INSERT INTO users (email, password_hash, full_name, role, is_active, is_verified)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + userColumns

	created, err := scanUserRow(r.pool.QueryRow(ctx, query,
		NormalizeEmail(user.Email), user.PasswordHash, user.FullName,
		user.Role, user.IsActive, user.IsVerified,
	))
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return created, nil
}

// UpdateLoginState locks the account row, lets fn change the attempt
// counter, lock and last-login fields, and commits the result. The whole
// read-modify-write is one transaction, so concurrent logins for the same
// account are applied one after another. An error from fn rolls back.
func (r *UserRepository) UpdateLoginState(ctx context.Context, id string, fn func(*models.User) error) (*models.User, error) {
	var updated *models.User

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		user, err := scanUserRow(tx.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}

		if err := fn(user); err != nil {
			return err
		}

		updated, err = scanUserRow(tx.QueryRow(ctx, `
			UPDATE users
			SET failed_login_attempts = $2, locked_until = $3, last_login = $4, updated_at = NOW()
			WHERE id = $1
			RETURNING `+userColumns,
			id, user.FailedLoginAttempts, user.LockedUntil, user.LastLogin,
		))
		return err
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// UpdatePasswordHash replaces the stored hash, used when rehashing at a new cost
func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, hash)
	if err != nil {
		return fmt.Errorf("failed to update password hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	return scanUserRows(rows)
}

// ToggleRole flips an account between the user and admin roles in a single
// statement, so concurrent toggles each take effect.
func (r *UserRepository) ToggleRole(ctx context.Context, id string) (*models.User, error) {
	query := `
		UPDATE users
		SET role = CASE WHEN role = 'admin' THEN 'user' ELSE 'admin' END, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns
	return scanUserRow(r.pool.QueryRow(ctx, query, id))
}

// ToggleActive enables a disabled account or disables an enabled one
func (r *UserRepository) ToggleActive(ctx context.Context, id string) (*models.User, error) {
	query := `
		UPDATE users SET is_active = NOT is_active, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns
	return scanUserRow(r.pool.QueryRow(ctx, query, id))
}

// Unlock clears the failed-attempt counter and any lock
func (r *UserRepository) Unlock(ctx context.Context, id string) (*models.User, error) {
	query := `
		UPDATE users SET failed_login_attempts = 0, locked_until = NULL, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns
	return scanUserRow(r.pool.QueryRow(ctx, query, id))
}

// Stats counts accounts for the admin dashboard. Locked counts accounts
// whose lock is still in force at now.
func (r *UserRepository) Stats(ctx context.Context, now time.Time) (*models.UserStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE is_active),
			COUNT(*) FILTER (WHERE role = 'admin'),
			COUNT(*) FILTER (WHERE is_verified),
			COUNT(*) FILTER (WHERE locked_until IS NOT NULL AND locked_until > $1)
		FROM users`

	var stats models.UserStats
	err := r.pool.QueryRow(ctx, query, now).Scan(
		&stats.Total, &stats.Active, &stats.Admins, &stats.Verified, &stats.Locked,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	return &stats, nil
}
