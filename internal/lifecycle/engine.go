// Package lifecycle moves orders through their statuses and keeps table
// occupancy derived from the orders placed at each table.
//
//	aguardando -> em_preparo -> entregue -> arquivado
//	     \-> cancelado
//
// Engine is the entry point for callers; it consults the access guard once
// per operation and asks the Coordinator to re-derive table occupancy after
// every order mutation.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/safar/beach-pdv/internal/access"
	"github.com/safar/beach-pdv/internal/events"
	"github.com/safar/beach-pdv/internal/models"
)

type Engine struct {
	store  Store
	tables *Coordinator
	events events.Publisher
	log    *slog.Logger
	now    func() time.Time
	code   func() int
}

func NewEngine(store Store, tables *Coordinator, pub events.Publisher, log *slog.Logger) *Engine {
	return &Engine{
		store:  store,
		tables: tables,
		events: pub,
		log:    log,
		now:    time.Now,
		code:   randomOrderCode,
	}
}

// randomOrderCode is a 4-digit display code. Collisions are allowed; orders
// are identified by ID.
func randomOrderCode() int {
	return 1000 + rand.Intn(9000)
}

type ItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Notes     string `json:"notes,omitempty"`
}

type CreateOrderRequest struct {
	SellerID      string
	TableID       string
	CustomerPhone string
	Items         []ItemRequest
}

func (e *Engine) CreateOrder(ctx context.Context, p access.Principal, req CreateOrderRequest) (*models.Order, error) {
	if err := access.PlaceOrder(p, req.SellerID).Err(); err != nil {
		return nil, err
	}

	table, err := e.store.GetTable(ctx, req.TableID)
	if err != nil {
		return nil, fmt.Errorf("get table: %w", err)
	}
	if table.SellerID != req.SellerID {
		return nil, fmt.Errorf("table %s of seller %s: %w", req.TableID, req.SellerID, ErrNotFound)
	}

	if len(req.Items) == 0 {
		return nil, invalidItems("an order needs at least one item")
	}
	items, err := e.resolveItems(ctx, req.SellerID, req.Items)
	if err != nil {
		return nil, err
	}

	if p.IsClient() {
		if err := e.checkActiveTable(ctx, p.ID, req.SellerID, req.TableID); err != nil {
			return nil, err
		}
	}

	now := e.now()
	order := &models.Order{
		ID:          uuid.NewString(),
		OrderCode:   e.code(),
		TableID:     table.ID,
		TableNumber: table.Number,
		Items:       items,
		Total:       models.OrderTotal(items),
		Status:      models.OrderStatusAwaiting,
		SellerID:    req.SellerID,
		SellerName:  table.SellerName,
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     1,
	}
	if !p.Anonymous() {
		order.UserID = p.ID
		order.UserName = p.Name
	}
	if p.IsAdmin() && p.Name != "" {
		order.SellerName = p.Name
	}

	if err := e.store.InsertOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	who := Customer{Name: order.UserName, Phone: req.CustomerPhone}
	if _, err := e.tables.Occupy(ctx, table.ID, who); err != nil {
		e.log.Error("occupy table after order", "order_id", order.ID, "table_id", table.ID, "error", err)
	}

	e.log.Info("order created",
		"order_id", order.ID, "order_code", order.OrderCode, "table_id", table.ID, "total", order.Total.StringFixed(2))
	e.publish(ctx, events.Event{
		Type:     events.OrderCreated,
		SellerID: order.SellerID,
		OrderID:  order.ID,
		TableID:  order.TableID,
		To:       string(order.Status),
		Payload:  map[string]any{"order_code": order.OrderCode, "total": order.Total.StringFixed(2)},
	})

	return order, nil
}

// checkActiveTable pins a client to one table per seller while any of its
// orders with that seller is still active.
func (e *Engine) checkActiveTable(ctx context.Context, userID, sellerID, tableID string) error {
	active, err := e.store.ListActiveOrdersForUser(ctx, userID, sellerID)
	if err != nil {
		return fmt.Errorf("list active orders: %w", err)
	}
	for _, o := range active {
		if o.TableID != tableID {
			return fmt.Errorf("%w (table %d)", ErrDuplicateActiveTable, o.TableNumber)
		}
	}
	return nil
}

// resolveItems prices every item from the seller's catalogue.
func (e *Engine) resolveItems(ctx context.Context, sellerID string, reqs []ItemRequest) ([]models.OrderItem, error) {
	items := make([]models.OrderItem, 0, len(reqs))
	for i, r := range reqs {
		if r.Quantity < 1 {
			return nil, invalidItems("item %d: quantity must be at least 1", i+1)
		}

		product, err := e.store.GetProduct(ctx, r.ProductID)
		if errors.Is(err, ErrNotFound) {
			return nil, invalidItems("item %d: unknown product %s", i+1, r.ProductID)
		}
		if err != nil {
			return nil, fmt.Errorf("get product: %w", err)
		}
		if product.SellerID != sellerID {
			return nil, invalidItems("item %d: product %s is not on this menu", i+1, r.ProductID)
		}
		if !product.IsActive {
			return nil, invalidItems("item %d: %s is not available", i+1, product.Name)
		}

		items = append(items, models.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Price:       product.Price,
			Quantity:    r.Quantity,
			Notes:       r.Notes,
		})
	}
	return items, nil
}

func (e *Engine) TransitionOrder(ctx context.Context, p access.Principal, orderID string, target models.OrderStatus) (*models.Order, error) {
	order, err := e.loadOrder(ctx, p, orderID)
	if err != nil {
		return nil, err
	}

	if !target.Valid() {
		return nil, &TransitionError{From: order.Status, To: target}
	}
	if err := CheckTransition(order.Status, target, p.Role); err != nil {
		return nil, err
	}

	updated, err := e.store.UpdateOrderStatus(ctx, order.ID, target, order.Version)
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	e.afterOrderChange(ctx, updated)

	e.log.Info("order status changed", "order_id", order.ID, "from", order.Status, "to", target, "table_id", order.TableID)
	e.publish(ctx, events.Event{
		Type:     events.OrderStatusChanged,
		SellerID: updated.SellerID,
		OrderID:  updated.ID,
		TableID:  updated.TableID,
		From:     string(order.Status),
		To:       string(target),
	})

	return updated, nil
}

// ReplaceOrderItems swaps the whole item list of an awaiting order. An empty
// list cancels the order instead of leaving it active with nothing in it.
func (e *Engine) ReplaceOrderItems(ctx context.Context, p access.Principal, orderID string, reqs []ItemRequest) (*models.Order, error) {
	order, err := e.loadOrder(ctx, p, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status == models.OrderStatusPreparing && p.IsClient() {
		return nil, forbidden("order is already being prepared")
	}
	if order.Status != models.OrderStatusAwaiting {
		return nil, forbidden("items can only change while the order is " + string(models.OrderStatusAwaiting))
	}

	var (
		items  []models.OrderItem
		status = models.OrderStatusAwaiting
	)
	if len(reqs) == 0 {
		status = models.OrderStatusCancelled
	} else {
		items, err = e.resolveItems(ctx, order.SellerID, reqs)
		if err != nil {
			return nil, err
		}
	}

	updated, err := e.store.ReplaceOrderItems(ctx, order.ID, items, models.OrderTotal(items), status, order.Version)
	if err != nil {
		return nil, fmt.Errorf("replace order items: %w", err)
	}

	e.afterOrderChange(ctx, updated)

	ev := events.Event{
		Type:     events.OrderItemsReplaced,
		SellerID: updated.SellerID,
		OrderID:  updated.ID,
		TableID:  updated.TableID,
		Payload:  map[string]any{"items": len(items), "total": updated.Total.StringFixed(2)},
	}
	if status == models.OrderStatusCancelled {
		e.log.Info("order cancelled by emptying items", "order_id", order.ID)
		ev.Type = events.OrderStatusChanged
		ev.From = string(order.Status)
		ev.To = string(status)
	} else {
		e.log.Info("order items replaced", "order_id", order.ID, "items", len(items), "total", updated.Total.StringFixed(2))
	}
	e.publish(ctx, ev)

	return updated, nil
}

func (e *Engine) DeleteOrder(ctx context.Context, p access.Principal, orderID string) error {
	order, err := e.loadOrder(ctx, p, orderID)
	if err != nil {
		return err
	}

	if order.Status != models.OrderStatusAwaiting && !p.IsAdmin() {
		return forbidden("only aguardando orders cancellable by non-admin")
	}

	if err := e.store.DeleteOrder(ctx, order.ID); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}

	e.afterOrderChange(ctx, order)

	e.log.Info("order deleted", "order_id", order.ID, "status", order.Status)
	e.publish(ctx, events.Event{
		Type:     events.OrderDeleted,
		SellerID: order.SellerID,
		OrderID:  order.ID,
		TableID:  order.TableID,
		From:     string(order.Status),
	})

	return nil
}

// MarkOrderPaid records payment; it does not move the order status.
func (e *Engine) MarkOrderPaid(ctx context.Context, p access.Principal, orderID string, method models.PaymentMethod) (*models.Order, error) {
	order, err := e.loadOrder(ctx, p, orderID)
	if err != nil {
		return nil, err
	}
	if err := access.ManageSeller(p, order.SellerID).Err(); err != nil {
		return nil, err
	}

	if !method.Valid() {
		return nil, fmt.Errorf("%w: unknown payment method %q", ErrInvalidPayment, method)
	}
	if order.Status == models.OrderStatusCancelled {
		return nil, fmt.Errorf("%w: order is cancelled", ErrInvalidPayment)
	}

	updated, err := e.store.MarkOrderPaid(ctx, order.ID, method, order.Version)
	if err != nil {
		return nil, fmt.Errorf("mark order paid: %w", err)
	}

	e.publish(ctx, events.Event{
		Type:     events.OrderPaid,
		SellerID: updated.SellerID,
		OrderID:  updated.ID,
		TableID:  updated.TableID,
		Payload:  map[string]any{"payment_method": string(method), "total": updated.Total.StringFixed(2)},
	})

	return updated, nil
}

func (e *Engine) ReconcileTable(ctx context.Context, p access.Principal, tableID string) (*models.Table, error) {
	if _, err := e.loadTable(ctx, p, tableID); err != nil {
		return nil, err
	}
	return e.tables.Reconcile(ctx, tableID)
}

func (e *Engine) ReleaseTable(ctx context.Context, p access.Principal, tableID string) (*ReleaseResult, error) {
	if _, err := e.loadTable(ctx, p, tableID); err != nil {
		return nil, err
	}
	return e.tables.Release(ctx, tableID)
}

func (e *Engine) CreateTables(ctx context.Context, p access.Principal, quantity int) ([]models.Table, error) {
	if err := access.RequireAdmin(p).Err(); err != nil {
		return nil, err
	}
	return e.tables.CreateMany(ctx, p.ID, p.Name, quantity)
}

func (e *Engine) ReconcileSeller(ctx context.Context, p access.Principal) ([]models.Table, error) {
	if err := access.RequireAdmin(p).Err(); err != nil {
		return nil, err
	}
	return e.tables.ReconcileSeller(ctx, p.ID)
}

// OccupyForClient marks the table a newly registered client sits at.
func (e *Engine) OccupyForClient(ctx context.Context, client *models.User) (*models.Table, error) {
	if client.TableID == "" {
		return nil, nil
	}

	table, err := e.store.GetTable(ctx, client.TableID)
	if err != nil {
		return nil, fmt.Errorf("get table: %w", err)
	}
	if client.SellerID != "" && table.SellerID != client.SellerID {
		return nil, fmt.Errorf("table %s of seller %s: %w", client.TableID, client.SellerID, ErrNotFound)
	}

	return e.tables.Occupy(ctx, table.ID, Customer{Name: client.DisplayName(), Phone: client.Phone})
}

func (e *Engine) loadOrder(ctx context.Context, p access.Principal, orderID string) (*models.Order, error) {
	order, err := e.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if err := access.TouchOrder(p, order).Err(); err != nil {
		return nil, err
	}
	return order, nil
}

func (e *Engine) loadTable(ctx context.Context, p access.Principal, tableID string) (*models.Table, error) {
	if err := access.RequireAdmin(p).Err(); err != nil {
		return nil, err
	}
	table, err := e.store.GetTable(ctx, tableID)
	if err != nil {
		return nil, fmt.Errorf("get table: %w", err)
	}
	if err := access.ManageTable(p, table).Err(); err != nil {
		return nil, err
	}
	return table, nil
}

// afterOrderChange re-derives occupancy of the order's table. A failure here
// leaves the table stale until the next reconciliation; the order change
// itself already happened.
func (e *Engine) afterOrderChange(ctx context.Context, o *models.Order) {
	if _, err := e.tables.Reconcile(ctx, o.TableID); err != nil {
		e.log.Error("reconcile table after order change", "order_id", o.ID, "table_id", o.TableID, "error", err)
	}
}

func (e *Engine) publish(ctx context.Context, ev events.Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = e.now()
	}
	if err := e.events.Publish(ctx, ev); err != nil {
		e.log.Warn("publish event failed", "type", ev.Type, "order_id", ev.OrderID, "error", err)
	}
}
