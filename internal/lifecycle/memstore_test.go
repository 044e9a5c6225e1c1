package lifecycle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/safar/beach-pdv/internal/database"
	"github.com/safar/beach-pdv/internal/events"
	"github.com/safar/beach-pdv/internal/models"
	"github.com/shopspring/decimal"
)

// memStore mirrors the version-checked behaviour of the Postgres store.
type memStore struct {
	mu       sync.Mutex
	orders   map[string]models.Order
	tables   map[string]models.Table
	products map[string]models.Product

	// failArchive makes UpdateOrderStatus to arquivado fail for these ids
	failArchive map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		orders:      make(map[string]models.Order),
		tables:      make(map[string]models.Table),
		products:    make(map[string]models.Product),
		failArchive: make(map[string]error),
	}
}

func cloneOrder(o models.Order) *models.Order {
	o.Items = append([]models.OrderItem(nil), o.Items...)
	return &o
}

func (s *memStore) GetOrder(_ context.Context, id string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, database.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (s *memStore) InsertOrder(_ context.Context, o *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = *cloneOrder(*o)
	return nil
}

func (s *memStore) bump(id string, version int, fn func(*models.Order)) (*models.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, database.ErrOrderNotFound
	}
	if o.Version != version {
		return nil, database.ErrOptimisticLockFailed
	}
	fn(&o)
	o.Version++
	o.UpdatedAt = time.Now()
	s.orders[id] = o
	return cloneOrder(o), nil
}

func (s *memStore) UpdateOrderStatus(_ context.Context, id string, status models.OrderStatus, version int) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failArchive[id]; ok && status == models.OrderStatusArchived {
		return nil, err
	}
	return s.bump(id, version, func(o *models.Order) { o.Status = status })
}

func (s *memStore) ReplaceOrderItems(_ context.Context, id string, items []models.OrderItem, total decimal.Decimal, status models.OrderStatus, version int) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bump(id, version, func(o *models.Order) {
		o.Items = append([]models.OrderItem(nil), items...)
		o.Total = total
		o.Status = status
	})
}

func (s *memStore) MarkOrderPaid(_ context.Context, id string, method models.PaymentMethod, version int) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bump(id, version, func(o *models.Order) {
		o.IsPaid = true
		o.PaymentMethod = method
	})
}

func (s *memStore) DeleteOrder(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[id]; !ok {
		return database.ErrOrderNotFound
	}
	delete(s.orders, id)
	return nil
}

func (s *memStore) ListOrdersByTable(_ context.Context, tableID string) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Order
	for _, o := range s.orders {
		if o.TableID == tableID {
			out = append(out, *cloneOrder(o))
		}
	}
	return out, nil
}

func (s *memStore) ListActiveOrdersForUser(_ context.Context, userID, sellerID string) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Order
	for _, o := range s.orders {
		if o.UserID == userID && o.SellerID == sellerID && o.Status.Active() {
			out = append(out, *cloneOrder(o))
		}
	}
	return out, nil
}

func (s *memStore) GetTable(_ context.Context, id string) (*models.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[id]
	if !ok {
		return nil, database.ErrTableNotFound
	}
	return &t, nil
}

func (s *memStore) SaveTableOccupancy(_ context.Context, t *models.Table) (*models.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.tables[t.ID]
	if !ok {
		return nil, database.ErrTableNotFound
	}
	if cur.Version != t.Version {
		return nil, database.ErrOptimisticLockFailed
	}
	saved := *t
	saved.Version++
	s.tables[t.ID] = saved
	return &saved, nil
}

func (s *memStore) ListTablesBySeller(_ context.Context, sellerID string) ([]models.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Table
	for _, t := range s.tables {
		if t.SellerID == sellerID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (s *memStore) CreateTablesNumbered(_ context.Context, sellerID string, build func(int) []models.Table) ([]models.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	highest := 0
	for _, t := range s.tables {
		if t.SellerID == sellerID && t.Number > highest {
			highest = t.Number
		}
	}
	tables := build(highest)
	for _, t := range tables {
		s.tables[t.ID] = t
	}
	return tables, nil
}

func (s *memStore) GetProduct(_ context.Context, id string) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, database.ErrProductNotFound
	}
	return &p, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	store  *memStore
	pub    *recordingPublisher
	coord  *Coordinator
	engine *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := newMemStore()
	pub := &recordingPublisher{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	coord := NewCoordinator(store, pub, log, time.Second)
	engine := NewEngine(store, coord, pub, log)
	engine.code = func() int { return 4242 }

	return &fixture{store: store, pub: pub, coord: coord, engine: engine}
}

func (f *fixture) addTable(id, sellerID string, number int) {
	f.store.tables[id] = models.Table{
		ID:       id,
		Number:   number,
		Status:   models.TableStatusAvailable,
		SellerID: sellerID,
		Version:  1,
	}
}

func (f *fixture) addProduct(id, sellerID, price string, active bool) {
	f.store.products[id] = models.Product{
		ID:       id,
		SellerID: sellerID,
		Name:     "product " + id,
		Price:    decimal.RequireFromString(price),
		IsActive: active,
	}
}

func (f *fixture) addOrder(id, tableID, sellerID, userID string, status models.OrderStatus) {
	f.store.orders[id] = models.Order{
		ID:       id,
		TableID:  tableID,
		SellerID: sellerID,
		UserID:   userID,
		Status:   status,
		Total:    decimal.Zero,
		Version:  1,
	}
}

func (f *fixture) tableStatus(id string) models.TableStatus {
	return f.store.tables[id].Status
}

var errBoom = errors.New("boom")
