package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/safar/beach-pdv/internal/database"
	"github.com/safar/beach-pdv/internal/models"
	"github.com/shopspring/decimal"
)

type ProductInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	IsActive    *bool           `json:"is_active"`
}

func (in ProductInput) Validate() error {
	if in.Name == "" {
		return errors.New("product name is required")
	}
	if in.Price.IsNegative() {
		return errors.New("product price must not be negative")
	}
	return nil
}

func (in ProductInput) active() bool {
	return in.IsActive == nil || *in.IsActive
}

const productColumns = `id, seller_id, seller_name, name, description, category, price, is_active, created_at, updated_at`

func scanProduct(row rowScanner) (*models.Product, error) {
	product := &models.Product{}
	err := row.Scan(
		&product.ID,
		&product.SellerID,
		&product.SellerName,
		&product.Name,
		&product.Description,
		&product.Category,
		&product.Price,
		&product.IsActive,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	return product, err
}

func CreateProduct(ctx context.Context, db *sql.DB, sellerID, sellerName string, in ProductInput) (*models.Product, error) {
	query := `
		INSERT INTO products (id, seller_id, seller_name, name, description, category, price, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING ` + productColumns

	product, err := scanProduct(db.QueryRowContext(ctx, query,
		uuid.NewString(), sellerID, sellerName, in.Name, in.Description, in.Category, in.Price, in.active()))
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	return product, nil
}

func GetProduct(ctx context.Context, db *sql.DB, id string) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

// UpdateProduct only touches products of sellerID; a foreign id reads as not
// found.
func UpdateProduct(ctx context.Context, db *sql.DB, id, sellerID string, in ProductInput) (*models.Product, error) {
	query := `
		UPDATE products
		SET name = $1, description = $2, category = $3, price = $4, is_active = $5, updated_at = NOW()
		WHERE id = $6 AND seller_id = $7
		RETURNING ` + productColumns

	product, err := scanProduct(db.QueryRowContext(ctx, query,
		in.Name, in.Description, in.Category, in.Price, in.active(), id, sellerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("update product: %w", err)
	}

	return product, nil
}

// DeleteProduct leaves existing orders intact; order items carry their own
// name and price snapshot.
func DeleteProduct(ctx context.Context, db *sql.DB, id, sellerID string) error {
	result, err := db.ExecContext(ctx,
		`DELETE FROM products WHERE id = $1 AND seller_id = $2`,
		id, sellerID)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrProductNotFound
	}

	return nil
}

func ListProductsBySeller(ctx context.Context, db *sql.DB, sellerID string, activeOnly bool) ([]models.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE seller_id = $1
		  AND (is_active OR NOT $2)
		ORDER BY category, name`

	rows, err := db.QueryContext(ctx, query, sellerID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}
