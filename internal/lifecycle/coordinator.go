package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/safar/beach-pdv/internal/events"
	"github.com/safar/beach-pdv/internal/models"
)

const occupancyRetries = 3

// Coordinator keeps Table.Status in line with the active orders that
// reference the table.
type Coordinator struct {
	store          Store
	events         events.Publisher
	log            *slog.Logger
	releaseTimeout time.Duration
	now            func() time.Time
}

func NewCoordinator(store Store, pub events.Publisher, log *slog.Logger, releaseTimeout time.Duration) *Coordinator {
	return &Coordinator{
		store:          store,
		events:         pub,
		log:            log,
		releaseTimeout: releaseTimeout,
		now:            time.Now,
	}
}

// DesiredStatus is occupied iff at least one order is active.
func DesiredStatus(orders []models.Order) models.TableStatus {
	for _, o := range orders {
		if o.Status.Active() {
			return models.TableStatusOccupied
		}
	}
	return models.TableStatusAvailable
}

func (c *Coordinator) Reconcile(ctx context.Context, tableID string) (*models.Table, error) {
	orders, err := c.store.ListOrdersByTable(ctx, tableID)
	if err != nil {
		return nil, fmt.Errorf("list orders for table: %w", err)
	}

	desired := DesiredStatus(orders)
	table, err := c.setStatus(ctx, tableID, desired, Customer{}, false)
	if err != nil {
		return nil, err
	}

	c.log.Debug("table reconciled", "table_id", tableID, "status", table.Status, "orders", len(orders))
	return table, nil
}

// Customer is the snapshot written onto an occupied table. Empty fields keep
// whatever the table already shows.
type Customer struct {
	Name  string
	Phone string
}

// Occupy marks the table occupied and snapshots the customer on it. Used when
// an order is placed or a client registers against the table.
func (c *Coordinator) Occupy(ctx context.Context, tableID string, who Customer) (*models.Table, error) {
	return c.setStatus(ctx, tableID, models.TableStatusOccupied, who, false)
}

// setStatus writes status to the table, re-reading it after a version
// conflict. force clears the customer snapshot even when the status is
// already the desired one.
func (c *Coordinator) setStatus(ctx context.Context, tableID string, status models.TableStatus, who Customer, force bool) (*models.Table, error) {
	var lastErr error

	for attempt := 0; attempt < occupancyRetries; attempt++ {
		table, err := c.store.GetTable(ctx, tableID)
		if err != nil {
			return nil, fmt.Errorf("get table: %w", err)
		}

		if !applyStatus(table, status, who, c.now(), force) {
			return table, nil
		}

		saved, err := c.store.SaveTableOccupancy(ctx, table)
		if err == nil {
			return saved, nil
		}
		if !errors.Is(err, ErrConflict) {
			return nil, fmt.Errorf("save table occupancy: %w", err)
		}
		lastErr = err
	}

	return nil, fmt.Errorf("save table occupancy after %d attempts: %w", occupancyRetries, lastErr)
}

// applyStatus mutates t towards status and reports whether anything changed.
func applyStatus(t *models.Table, status models.TableStatus, who Customer, now time.Time, force bool) bool {
	changed := false

	switch status {
	case models.TableStatusOccupied:
		if t.Status != models.TableStatusOccupied {
			t.Status = models.TableStatusOccupied
			t.OccupiedAt = &now
			changed = true
		}
		if who.Name != "" && t.CustomerName != who.Name {
			t.CustomerName = who.Name
			changed = true
		}
		if who.Phone != "" && t.CustomerPhone != who.Phone {
			t.CustomerPhone = who.Phone
			changed = true
		}
	case models.TableStatusAvailable:
		if t.Status != models.TableStatusAvailable || force {
			changed = t.Status != models.TableStatusAvailable ||
				t.OccupiedAt != nil || t.CustomerName != "" || t.CustomerPhone != ""
			t.Status = models.TableStatusAvailable
			t.OccupiedAt = nil
			t.CustomerName = ""
			t.CustomerPhone = ""
		}
	}

	return changed
}

type ReleaseResult struct {
	Table    *models.Table
	Archived []string
	Failed   map[string]error
}

// Err is non-nil when some delivered orders could not be archived.
func (r *ReleaseResult) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	return &ReleaseError{TableID: r.Table.ID, Failures: r.Failed}
}

// Release archives every delivered order on the table in parallel and then
// frees the table unconditionally. Archive failures are collected, not
// retried. Awaiting and preparing orders are left alone.
func (c *Coordinator) Release(ctx context.Context, tableID string) (*ReleaseResult, error) {
	table, err := c.store.GetTable(ctx, tableID)
	if err != nil {
		return nil, fmt.Errorf("get table: %w", err)
	}

	orders, err := c.store.ListOrdersByTable(ctx, tableID)
	if err != nil {
		return nil, fmt.Errorf("list orders for table: %w", err)
	}

	result := &ReleaseResult{Failed: make(map[string]error)}

	archiveCtx, cancel := context.WithTimeout(ctx, c.releaseTimeout)
	defer cancel()

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, o := range orders {
		if o.Status != models.OrderStatusDelivered {
			continue
		}

		wg.Add(1)
		go func(o models.Order) {
			defer wg.Done()

			_, err := c.store.UpdateOrderStatus(archiveCtx, o.ID, models.OrderStatusArchived, o.Version)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed[o.ID] = err
				return
			}
			result.Archived = append(result.Archived, o.ID)
		}(o)
	}
	wg.Wait()

	freed, err := c.setStatus(ctx, table.ID, models.TableStatusAvailable, Customer{}, true)
	if err != nil {
		return nil, err
	}
	result.Table = freed

	if len(result.Failed) > 0 {
		c.log.Error("table released with unarchived orders",
			"table_id", tableID, "archived", len(result.Archived), "failed", len(result.Failed))
	} else {
		c.log.Info("table released", "table_id", tableID, "archived", len(result.Archived))
	}

	c.publish(ctx, events.Event{
		Type:     events.TableReleased,
		SellerID: table.SellerID,
		TableID:  table.ID,
		Payload: map[string]any{
			"archived": result.Archived,
			"failed":   len(result.Failed),
		},
	})

	return result, nil
}

// CreateMany appends quantity tables to the seller's set, numbered after the
// seller's current highest number.
func (c *Coordinator) CreateMany(ctx context.Context, sellerID, sellerName string, quantity int) ([]models.Table, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	now := c.now()
	tables, err := c.store.CreateTablesNumbered(ctx, sellerID, func(maxNumber int) []models.Table {
		return numberTables(sellerID, sellerName, maxNumber, quantity, now)
	})
	if err != nil {
		return nil, fmt.Errorf("create tables: %w", err)
	}

	c.log.Info("tables created", "seller_id", sellerID, "quantity", len(tables))
	c.publish(ctx, events.Event{
		Type:     events.TablesCreated,
		SellerID: sellerID,
		Payload:  map[string]any{"quantity": len(tables)},
	})

	return tables, nil
}

func numberTables(sellerID, sellerName string, maxNumber, quantity int, now time.Time) []models.Table {
	tables := make([]models.Table, 0, quantity)
	for i := 1; i <= quantity; i++ {
		tables = append(tables, models.Table{
			ID:         uuid.NewString(),
			Number:     maxNumber + i,
			Status:     models.TableStatusAvailable,
			SellerID:   sellerID,
			SellerName: sellerName,
			CreatedAt:  now,
			UpdatedAt:  now,
			Version:    1,
		})
	}
	return tables
}

// ReconcileSeller re-derives occupancy for every table of the seller. Safe to
// re-run; heals a release that crashed between archiving and freeing.
func (c *Coordinator) ReconcileSeller(ctx context.Context, sellerID string) ([]models.Table, error) {
	tables, err := c.store.ListTablesBySeller(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	var errs []error
	out := make([]models.Table, 0, len(tables))
	for _, t := range tables {
		reconciled, err := c.Reconcile(ctx, t.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("table %d: %w", t.Number, err))
			continue
		}
		out = append(out, *reconciled)
	}

	return out, errors.Join(errs...)
}

func (c *Coordinator) publish(ctx context.Context, e events.Event) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = c.now()
	}
	if err := c.events.Publish(ctx, e); err != nil {
		c.log.Warn("publish event failed", "type", e.Type, "error", err)
	}
}
