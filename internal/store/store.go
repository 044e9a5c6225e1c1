package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/safar/beach-pdv/internal/database"
	"github.com/safar/beach-pdv/internal/models"
	"github.com/shopspring/decimal"
)

// Store binds the package functions to one connection pool. It is the
// persistence port of the lifecycle engine and serves the read-only listings
// and reports of the HTTP layer.
type Store struct {
	db  *sql.DB
	loc *time.Location
	now func() time.Time
}

// New reports revenue in loc; nil means UTC.
func New(db *sql.DB, loc *time.Location) *Store {
	if loc == nil {
		loc = time.UTC
	}
	return &Store{db: db, loc: loc, now: time.Now}
}

func (s *Store) clock() time.Time {
	return s.now().In(s.loc)
}

func (s *Store) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	return GetOrder(ctx, s.db, id)
}

func (s *Store) InsertOrder(ctx context.Context, o *models.Order) error {
	return InsertOrder(ctx, s.db, o)
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus, version int) (*models.Order, error) {
	return UpdateOrderStatus(ctx, s.db, id, status, version)
}

func (s *Store) ReplaceOrderItems(ctx context.Context, id string, items []models.OrderItem, total decimal.Decimal, status models.OrderStatus, version int) (*models.Order, error) {
	return ReplaceOrderItems(ctx, s.db, id, items, total, status, version)
}

func (s *Store) MarkOrderPaid(ctx context.Context, id string, method models.PaymentMethod, version int) (*models.Order, error) {
	return MarkOrderPaid(ctx, s.db, id, method, version)
}

func (s *Store) DeleteOrder(ctx context.Context, id string) error {
	return DeleteOrder(ctx, s.db, id)
}

func (s *Store) ListOrdersByTable(ctx context.Context, tableID string) ([]models.Order, error) {
	return ListOrdersByTable(ctx, s.db, tableID)
}

func (s *Store) ListActiveOrdersForUser(ctx context.Context, userID, sellerID string) ([]models.Order, error) {
	return ListActiveOrdersForUser(ctx, s.db, userID, sellerID)
}

func (s *Store) ListOrdersBySeller(ctx context.Context, sellerID string, statuses ...models.OrderStatus) ([]models.Order, error) {
	return ListOrdersBySeller(ctx, s.db, sellerID, statuses...)
}

func (s *Store) ListOrdersCursor(ctx context.Context, userID, sellerID, cursor string, limit int) (*CursorPage, error) {
	return ListOrdersCursor(ctx, s.db, userID, sellerID, cursor, limit)
}

func (s *Store) CreateTable(ctx context.Context, sellerID, sellerName string, number int) (*models.Table, error) {
	return CreateTable(ctx, s.db, sellerID, sellerName, number)
}

func (s *Store) DeleteTable(ctx context.Context, id string) error {
	return DeleteTable(ctx, s.db, id)
}

func (s *Store) GetTable(ctx context.Context, id string) (*models.Table, error) {
	return GetTable(ctx, s.db, id)
}

func (s *Store) SaveTableOccupancy(ctx context.Context, t *models.Table) (*models.Table, error) {
	return SaveTableOccupancy(ctx, s.db, t)
}

func (s *Store) ListTablesBySeller(ctx context.Context, sellerID string) ([]models.Table, error) {
	return ListTablesBySeller(ctx, s.db, sellerID)
}

func (s *Store) ListAvailableTablesBySeller(ctx context.Context, sellerID string) ([]models.Table, error) {
	return ListAvailableTablesBySeller(ctx, s.db, sellerID)
}

// CreateTablesNumbered reads the seller's highest number and inserts the
// tables built from it in one serializable transaction, retried on
// serialization failure, so concurrent creates never share a number.
func (s *Store) CreateTablesNumbered(ctx context.Context, sellerID string, build func(maxNumber int) []models.Table) ([]models.Table, error) {
	var tables []models.Table

	err := database.WithRetry(ctx, s.db, database.SerializableTxOptions(), func(tx *sql.Tx) error {
		highest, err := MaxTableNumber(ctx, tx, sellerID)
		if err != nil {
			return err
		}

		tables = build(highest)
		return InsertTables(ctx, tx, tables)
	})
	if err != nil {
		return nil, err
	}

	return tables, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	return GetProduct(ctx, s.db, id)
}

func (s *Store) CreateProduct(ctx context.Context, sellerID, sellerName string, in ProductInput) (*models.Product, error) {
	return CreateProduct(ctx, s.db, sellerID, sellerName, in)
}

func (s *Store) UpdateProduct(ctx context.Context, id, sellerID string, in ProductInput) (*models.Product, error) {
	return UpdateProduct(ctx, s.db, id, sellerID, in)
}

func (s *Store) DeleteProduct(ctx context.Context, id, sellerID string) error {
	return DeleteProduct(ctx, s.db, id, sellerID)
}

func (s *Store) ListProductsBySeller(ctx context.Context, sellerID string, activeOnly bool) ([]models.Product, error) {
	return ListProductsBySeller(ctx, s.db, sellerID, activeOnly)
}

func (s *Store) CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	return CreateUser(ctx, s.db, req)
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	return GetUser(ctx, s.db, id)
}

func (s *Store) ListSellers(ctx context.Context) ([]models.User, error) {
	return ListSellers(ctx, s.db)
}

func (s *Store) RevenueSummary(ctx context.Context, sellerID string) (*models.RevenueSummary, error) {
	return RevenueSummary(ctx, s.db, sellerID, s.clock())
}

func (s *Store) DailyRevenue(ctx context.Context, sellerID string) ([]models.RevenuePoint, error) {
	return DailyRevenue(ctx, s.db, sellerID, s.clock())
}

func (s *Store) MonthlyRevenue(ctx context.Context, sellerID string) ([]models.RevenuePoint, error) {
	return MonthlyRevenue(ctx, s.db, sellerID, s.clock())
}

func (s *Store) YearlyRevenue(ctx context.Context, sellerID string) ([]models.RevenuePoint, error) {
	return YearlyRevenue(ctx, s.db, sellerID, s.clock())
}

func (s *Store) DailyOrders(ctx context.Context, sellerID string) (*models.DailyOrders, error) {
	return DailyOrders(ctx, s.db, sellerID, s.clock())
}
