package lifecycle

import (
	"context"

	"github.com/safar/beach-pdv/internal/models"
	"github.com/shopspring/decimal"
)

// Store is the persistence the engine needs. Every write is a single-row
// update conditioned on the version that was read; a lost race surfaces as
// ErrConflict.
type Store interface {
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	InsertOrder(ctx context.Context, o *models.Order) error
	UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus, version int) (*models.Order, error)
	ReplaceOrderItems(ctx context.Context, id string, items []models.OrderItem, total decimal.Decimal, status models.OrderStatus, version int) (*models.Order, error)
	MarkOrderPaid(ctx context.Context, id string, method models.PaymentMethod, version int) (*models.Order, error)
	DeleteOrder(ctx context.Context, id string) error
	ListOrdersByTable(ctx context.Context, tableID string) ([]models.Order, error)
	ListActiveOrdersForUser(ctx context.Context, userID, sellerID string) ([]models.Order, error)

	GetTable(ctx context.Context, id string) (*models.Table, error)
	SaveTableOccupancy(ctx context.Context, t *models.Table) (*models.Table, error)
	ListTablesBySeller(ctx context.Context, sellerID string) ([]models.Table, error)
	// CreateTablesNumbered reads the seller's highest table number and inserts
	// whatever build returns for it, atomically.
	CreateTablesNumbered(ctx context.Context, sellerID string, build func(maxNumber int) []models.Table) ([]models.Table, error)

	GetProduct(ctx context.Context, id string) (*models.Product, error)
}
