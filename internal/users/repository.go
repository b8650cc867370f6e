package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codesagecoder/digital-marketplace/internal/shared"
)

// ErrNotFound indicates a missing user record.
var ErrNotFound = errors.New("user not found")

// Repository defines persistence operations for user accounts.
type Repository interface {
	Get(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, limit, offset int) ([]User, int, error)
	// ListIDs returns every user id; used by the ownership rebuild job.
	ListIDs(ctx context.Context) ([]string, error)
	// SetProductRefs rewrites the user's denormalized product list. Plain
	// last-writer-wins; concurrent writers are not detected.
	SetProductRefs(ctx context.Context, id string, productIDs []string) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const userColumns = `id, email, password_hash, role, products, is_active, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id string) (*User, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns), id)
	return scanUser(row)
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM users WHERE lower(email) = lower($1)`, userColumns), email)
	return scanUser(row)
}

func (r *repository) List(ctx context.Context, limit, offset int) ([]User, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("users: count: %w", err)
	}

	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM users
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, userColumns), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("users: list: %w", err)
	}
	defer rows.Close()

	var result []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *u)
	}
	return result, total, rows.Err()
}

func (r *repository) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM users WHERE is_active`)
	if err != nil {
		return nil, fmt.Errorf("users: list ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *repository) SetProductRefs(ctx context.Context, id string, productIDs []string) error {
	data, err := json.Marshal(productIDs)
	if err != nil {
		return fmt.Errorf("users: encode products: %w", err)
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET products = $2, updated_at = NOW() WHERE id = $1
	`, id, data)
	if err != nil {
		return fmt.Errorf("users: set products: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	var role string
	var products []byte
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &role, &products, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("users: scan: %w", err)
	}
	u.Role = shared.Role(role)
	if len(products) > 0 {
		if err := json.Unmarshal(products, &u.Products); err != nil {
			return nil, fmt.Errorf("users: decode products: %w", err)
		}
	}
	return &u, nil
}
