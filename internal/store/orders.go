package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/safar/beach-pdv/internal/database"
	"github.com/safar/beach-pdv/internal/models"
	"github.com/shopspring/decimal"
)

const orderColumns = `id, order_code, table_id, table_number, user_id, user_name, seller_id, seller_name,
	status, total, is_paid, payment_method, created_at, updated_at, version`

func scanOrder(row rowScanner) (*models.Order, error) {
	order := &models.Order{}
	err := row.Scan(
		&order.ID,
		&order.OrderCode,
		&order.TableID,
		&order.TableNumber,
		&order.UserID,
		&order.UserName,
		&order.SellerID,
		&order.SellerName,
		&order.Status,
		&order.Total,
		&order.IsPaid,
		&order.PaymentMethod,
		&order.CreatedAt,
		&order.UpdatedAt,
		&order.Version,
	)
	return order, err
}

func statusStrings(statuses []models.OrderStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

var activeStatuses = []models.OrderStatus{models.OrderStatusAwaiting, models.OrderStatusPreparing}

// InsertOrder stores the order and its items in one transaction. The caller
// assigns ID, code, total and version.
func InsertOrder(ctx context.Context, db *sql.DB, o *models.Order) error {
	return database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO orders (id, order_code, table_id, table_number, user_id, user_name, seller_id, seller_name,
			                     status, total, is_paid, payment_method, created_at, updated_at, version)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			o.ID, o.OrderCode, o.TableID, o.TableNumber, o.UserID, o.UserName, o.SellerID, o.SellerName,
			o.Status, o.Total, o.IsPaid, o.PaymentMethod, o.CreatedAt, o.UpdatedAt, o.Version)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		return insertItems(ctx, tx, o.ID, o.Items)
	})
}

func insertItems(ctx context.Context, tx *sql.Tx, orderID string, items []models.OrderItem) error {
	for i, item := range items {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, position, product_id, product_name, price, quantity, notes)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			orderID, i, item.ProductID, item.ProductName, item.Price, item.Quantity, item.Notes)
		if err != nil {
			return fmt.Errorf("create order item: %w", err)
		}
	}
	return nil
}

func GetOrder(ctx context.Context, db *sql.DB, id string) (*models.Order, error) {
	return getOrder(ctx, db, id)
}

func getOrder(ctx context.Context, q querier, id string) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	orders := []models.Order{*order}
	if err := attachItems(ctx, q, orders); err != nil {
		return nil, err
	}

	return &orders[0], nil
}

// attachItems loads the items of every order in one query.
func attachItems(ctx context.Context, q querier, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		index[orders[i].ID] = i
		orders[i].Items = []models.OrderItem{}
	}

	rows, err := q.QueryContext(ctx,
		`SELECT order_id, product_id, product_name, price, quantity, notes
		 FROM order_items
		 WHERE order_id = ANY($1)
		 ORDER BY order_id, position`,
		pq.Array(ids))
	if err != nil {
		return fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var orderID string
		var item models.OrderItem
		err := rows.Scan(
			&orderID,
			&item.ProductID,
			&item.ProductName,
			&item.Price,
			&item.Quantity,
			&item.Notes,
		)
		if err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		i := index[orderID]
		orders[i].Items = append(orders[i].Items, item)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows error: %w", err)
	}

	return nil
}

func queryOrders(ctx context.Context, q querier, query string, args ...any) ([]models.Order, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	if err := attachItems(ctx, q, orders); err != nil {
		return nil, err
	}

	return orders, nil
}

func ListOrdersByTable(ctx context.Context, db *sql.DB, tableID string) ([]models.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE table_id = $1
		ORDER BY created_at, id`

	return queryOrders(ctx, db, query, tableID)
}

func ListActiveOrdersForUser(ctx context.Context, db *sql.DB, userID, sellerID string) ([]models.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1 AND seller_id = $2 AND status = ANY($3)
		ORDER BY created_at, id`

	return queryOrders(ctx, db, query, userID, sellerID, pq.Array(statusStrings(activeStatuses)))
}

// ListOrdersBySeller returns the seller's orders newest first. No statuses
// means every status.
func ListOrdersBySeller(ctx context.Context, db *sql.DB, sellerID string, statuses ...models.OrderStatus) ([]models.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE seller_id = $1
		  AND (cardinality($2::text[]) = 0 OR status = ANY($2))
		ORDER BY created_at DESC, id DESC`

	return queryOrders(ctx, db, query, sellerID, pq.Array(statusStrings(statuses)))
}

// ListOrdersCursor is the order history of a user, newest first.
// ListOrdersCursor pages a user's orders newest first. A non-empty sellerID
// keeps only the orders placed with that seller.
func ListOrdersCursor(ctx context.Context, db *sql.DB, userID, sellerID, cursor string, limit int) (*CursorPage, error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	limit = ClampPageSize(limit)

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1
		  AND ($2::text = '' OR seller_id = $2)
		  AND (created_at, id) < ($3, $4)
		ORDER BY created_at DESC, id DESC
		LIMIT $5`

	orders, err := queryOrders(ctx, db, query, userID, sellerID, cursorData.CreatedAt, cursorData.ID, limit+1)
	if err != nil {
		return nil, err
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		lastOrder := orders[len(orders)-1]
		nextCursor = EncodeCursor(OrderCursor{
			CreatedAt: lastOrder.CreatedAt,
			ID:        lastOrder.ID,
		})
	}

	if orders == nil {
		orders = []models.Order{}
	}

	return &CursorPage{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// UpdateOrderStatus applies status only if the stored version still equals
// version.
func UpdateOrderStatus(ctx context.Context, db *sql.DB, id string, status models.OrderStatus, version int) (*models.Order, error) {
	query := `
		UPDATE orders
		SET status = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3
		RETURNING ` + orderColumns

	return updateOrder(ctx, db, id, query, status, id, version)
}

func MarkOrderPaid(ctx context.Context, db *sql.DB, id string, method models.PaymentMethod, version int) (*models.Order, error) {
	query := `
		UPDATE orders
		SET is_paid = TRUE, payment_method = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3
		RETURNING ` + orderColumns

	return updateOrder(ctx, db, id, query, method, id, version)
}

func updateOrder(ctx context.Context, q querier, id, query string, args ...any) (*models.Order, error) {
	order, err := scanOrder(q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, versionMiss(ctx, q, "orders", id, database.ErrOrderNotFound)
		}
		return nil, fmt.Errorf("update order: %w", err)
	}

	orders := []models.Order{*order}
	if err := attachItems(ctx, q, orders); err != nil {
		return nil, err
	}

	return &orders[0], nil
}

// ReplaceOrderItems swaps the whole item list and the derived total and
// status in one transaction, conditional on version.
func ReplaceOrderItems(ctx context.Context, db *sql.DB, id string, items []models.OrderItem, total decimal.Decimal, status models.OrderStatus, version int) (*models.Order, error) {
	var order *models.Order

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		var err error
		order, err = scanOrder(tx.QueryRowContext(ctx,
			`UPDATE orders
			 SET total = $1, status = $2, version = version + 1, updated_at = NOW()
			 WHERE id = $3 AND version = $4
			 RETURNING `+orderColumns,
			total, status, id, version))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return versionMiss(ctx, tx, "orders", id, database.ErrOrderNotFound)
			}
			return fmt.Errorf("update order: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, id); err != nil {
			return fmt.Errorf("delete order items: %w", err)
		}

		if err := insertItems(ctx, tx, id, items); err != nil {
			return err
		}

		order.Items = append([]models.OrderItem{}, items...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

func DeleteOrder(ctx context.Context, db *sql.DB, id string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrOrderNotFound
	}

	return nil
}
