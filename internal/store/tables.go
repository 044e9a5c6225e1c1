package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/safar/beach-pdv/internal/database"
	"github.com/safar/beach-pdv/internal/models"
)

const tableColumns = `id, number, status, seller_id, seller_name, customer_name, customer_phone,
	occupied_at, created_at, updated_at, version`

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanTable(row rowScanner) (*models.Table, error) {
	table := &models.Table{}
	err := row.Scan(
		&table.ID,
		&table.Number,
		&table.Status,
		&table.SellerID,
		&table.SellerName,
		&table.CustomerName,
		&table.CustomerPhone,
		&table.OccupiedAt,
		&table.CreatedAt,
		&table.UpdatedAt,
		&table.Version,
	)
	return table, err
}

func CreateTable(ctx context.Context, db *sql.DB, sellerID, sellerName string, number int) (*models.Table, error) {
	query := `
		INSERT INTO tables (id, number, status, seller_id, seller_name, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW(), 1)
		RETURNING ` + tableColumns

	table, err := scanTable(db.QueryRowContext(ctx, query,
		uuid.NewString(), number, models.TableStatusAvailable, sellerID, sellerName))
	if err != nil {
		if database.IsUniqueViolation(err, "tables_seller_number_key") {
			return nil, database.ErrDuplicateTableNumber
		}
		return nil, fmt.Errorf("create table: %w", err)
	}

	return table, nil
}

func GetTable(ctx context.Context, db *sql.DB, id string) (*models.Table, error) {
	query := `SELECT ` + tableColumns + ` FROM tables WHERE id = $1`

	table, err := scanTable(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrTableNotFound
		}
		return nil, fmt.Errorf("get table: %w", err)
	}

	return table, nil
}

func ListTablesBySeller(ctx context.Context, db *sql.DB, sellerID string) ([]models.Table, error) {
	query := `
		SELECT ` + tableColumns + `
		FROM tables
		WHERE seller_id = $1
		ORDER BY number`

	return queryTables(ctx, db, query, sellerID)
}

// ListAvailableTablesBySeller backs client registration, where a client picks
// a free table of the seller.
func ListAvailableTablesBySeller(ctx context.Context, db *sql.DB, sellerID string) ([]models.Table, error) {
	query := `
		SELECT ` + tableColumns + `
		FROM tables
		WHERE seller_id = $1 AND status = $2
		ORDER BY number`

	return queryTables(ctx, db, query, sellerID, models.TableStatusAvailable)
}

func queryTables(ctx context.Context, q querier, query string, args ...any) ([]models.Table, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []models.Table
	for rows.Next() {
		table, err := scanTable(rows)
		if err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		tables = append(tables, *table)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return tables, nil
}

func MaxTableNumber(ctx context.Context, tx *sql.Tx, sellerID string) (int, error) {
	var highest int
	err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(number), 0) FROM tables WHERE seller_id = $1`,
		sellerID).Scan(&highest)
	if err != nil {
		return 0, fmt.Errorf("max table number: %w", err)
	}
	return highest, nil
}

func InsertTables(ctx context.Context, tx *sql.Tx, tables []models.Table) error {
	for _, t := range tables {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO tables (id, number, status, seller_id, seller_name, created_at, updated_at, version)
			 VALUES ($1, $2, $3, $4, $5, $6, $6, $7)`,
			t.ID, t.Number, t.Status, t.SellerID, t.SellerName, t.CreatedAt, t.Version)
		if err != nil {
			if database.IsUniqueViolation(err, "tables_seller_number_key") {
				return database.ErrDuplicateTableNumber
			}
			return fmt.Errorf("insert table %d: %w", t.Number, err)
		}
	}
	return nil
}

// SaveTableOccupancy writes the status and customer snapshot of t if its
// version is still the stored one.
func SaveTableOccupancy(ctx context.Context, db *sql.DB, t *models.Table) (*models.Table, error) {
	query := `
		UPDATE tables
		SET status = $1, customer_name = $2, customer_phone = $3, occupied_at = $4,
		    version = version + 1, updated_at = NOW()
		WHERE id = $5 AND version = $6
		RETURNING ` + tableColumns

	saved, err := scanTable(db.QueryRowContext(ctx, query,
		t.Status, t.CustomerName, t.CustomerPhone, t.OccupiedAt, t.ID, t.Version))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, versionMiss(ctx, db, "tables", t.ID, database.ErrTableNotFound)
		}
		return nil, fmt.Errorf("save table occupancy: %w", err)
	}

	return saved, nil
}

// DeleteTable refuses to remove a table that still has orders.
func DeleteTable(ctx context.Context, db *sql.DB, id string) error {
	result, err := db.ExecContext(ctx,
		`DELETE FROM tables
		 WHERE id = $1
		   AND NOT EXISTS (SELECT 1 FROM orders WHERE table_id = $1)`,
		id)
	if err != nil {
		return fmt.Errorf("delete table: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		if _, err := GetTable(ctx, db, id); err != nil {
			return err
		}
		return ErrTableInUse
	}

	return nil
}

var ErrTableInUse = errors.New("table has orders")

// versionMiss tells a stale version apart from a missing row after a
// conditional UPDATE matched nothing.
func versionMiss(ctx context.Context, q querier, table, id string, notFound error) error {
	var exists bool
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM `+table+` WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check %s exists: %w", table, err)
	}
	if !exists {
		return notFound
	}
	return database.ErrOptimisticLockFailed
}
