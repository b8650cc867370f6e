package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates a missing product record.
var ErrNotFound = errors.New("product not found")

// Repository defines persistence operations for product records.
type Repository interface {
	Get(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context, req ListProductsRequest) ([]Product, int, error)
	Insert(ctx context.Context, product Product) error
	Update(ctx context.Context, product Product) error
	Delete(ctx context.Context, id string) error
	IDsByOwner(ctx context.Context, userID string) ([]string, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const productColumns = `id, user_id, name, description, price, category, product_file_id,
	image_ids, approved_for_sale, stripe_id, price_id, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id string) (*Product, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns), id)
	return scanProduct(row)
}

func (r *repository) List(ctx context.Context, req ListProductsRequest) ([]Product, int, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	if req.Category != nil {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argPos))
		args = append(args, string(*req.Category))
		argPos++
	}
	if req.Approved != nil {
		conditions = append(conditions, fmt.Sprintf("approved_for_sale = $%d", argPos))
		args = append(args, string(*req.Approved))
		argPos++
	}
	if req.IDs != nil {
		conditions = append(conditions, fmt.Sprintf("id = ANY($%d)", argPos))
		args = append(args, req.IDs)
		argPos++
	}

	whereClause := ""
	for i, cond := range conditions {
		if i == 0 {
			whereClause = "WHERE " + cond
		} else {
			whereClause += " AND " + cond
		}
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM products %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("catalog: count: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM products
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, productColumns, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("catalog: list: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, *p)
	}
	return products, total, rows.Err()
}

func (r *repository) Insert(ctx context.Context, product Product) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO products (
			id, user_id, name, description, price, category, product_file_id,
			image_ids, approved_for_sale, stripe_id, price_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		product.ID, product.UserID, product.Name, product.Description,
		product.Price, string(product.Category), product.ProductFileID,
		product.ImageIDs, string(product.ApprovedForSale),
		product.StripeID, product.PriceID, product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("catalog: insert: %w", err)
	}
	return nil
}

func (r *repository) Update(ctx context.Context, product Product) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE products SET
			name = $2, description = $3, price = $4, category = $5,
			product_file_id = $6, image_ids = $7, approved_for_sale = $8,
			stripe_id = $9, price_id = $10, updated_at = $11
		WHERE id = $1
	`,
		product.ID, product.Name, product.Description, product.Price,
		string(product.Category), product.ProductFileID, product.ImageIDs,
		string(product.ApprovedForSale), product.StripeID, product.PriceID,
		product.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("catalog: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("catalog: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) IDsByOwner(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id FROM products WHERE user_id = $1 ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("catalog: ids by owner: %w", err)
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

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	var category, status string
	err := row.Scan(
		&p.ID, &p.UserID, &p.Name, &p.Description, &p.Price, &category,
		&p.ProductFileID, &p.ImageIDs, &status, &p.StripeID, &p.PriceID,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("catalog: scan: %w", err)
	}
	p.Category = Category(category)
	p.ApprovedForSale = ApprovalStatus(status)
	return &p, nil
}
