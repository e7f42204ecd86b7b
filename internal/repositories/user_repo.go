package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/portal/internal/database"
	"github.com/BradenHooton/portal/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, user_id, first_name, last_name, username, email, password_hash, profile_image_url,
	last_login_date, last_login_date_display, join_date, role, authorities, is_active, is_locked,
	created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{pool: db.Pool, now: time.Now}
}

// rowScanner interface for scanning user rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanUserRow populates a User model from a database row
func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User

	err := scanner.Scan(
		&user.ID, &user.UserID, &user.FirstName, &user.LastName, &user.Username, &user.Email,
		&user.PasswordHash, &user.ProfileImageURL,
		&user.LastLoginDate, &user.LastLoginDateDisplay, &user.JoinDate,
		&user.Role, &user.Authorities, &user.Active, &user.Locked,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if user.Authorities == nil {
		user.Authorities = []string{}
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

func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, username))
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, email))
}

func (r *UserRepository) ListAll(ctx context.Context) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY join_date ASC, username ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	return scanUserRows(rows)
}

// Save inserts the user, or updates it when the id already exists.
// A missing id is generated. The stored row is returned.
func (r *UserRepository) Save(ctx context.Context, user *models.User) (*models.User, error) {
	now := r.now().UTC()
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.JoinDate.IsZero() {
		user.JoinDate = now
	}
	authorities := user.Authorities
	if authorities == nil {
		authorities = []string{}
	}

	query := `
		INSERT INTO users (id, user_id, first_name, last_name, username, email, password_hash, profile_image_url,
			last_login_date, last_login_date_display, join_date, role, authorities, is_active, is_locked,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $16)
		ON CONFLICT (id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			username = EXCLUDED.username,
			email = EXCLUDED.email,
			password_hash = EXCLUDED.password_hash,
			profile_image_url = EXCLUDED.profile_image_url,
			last_login_date = EXCLUDED.last_login_date,
			last_login_date_display = EXCLUDED.last_login_date_display,
			role = EXCLUDED.role,
			authorities = EXCLUDED.authorities,
			is_active = EXCLUDED.is_active,
			is_locked = EXCLUDED.is_locked,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + userColumns

	return scanUserRow(r.pool.QueryRow(ctx, query,
		user.ID, user.UserID, user.FirstName, user.LastName, user.Username, user.Email,
		user.PasswordHash, user.ProfileImageURL,
		user.LastLoginDate, user.LastLoginDateDisplay, user.JoinDate,
		user.Role, authorities, user.Active, user.Locked,
		now,
	))
}

func (r *UserRepository) DeleteByID(ctx context.Context, id string) error {
	query := `DELETE FROM users WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
