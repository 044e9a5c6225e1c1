package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/safar/beach-pdv/internal/access"
	"github.com/safar/beach-pdv/internal/database"
	"github.com/safar/beach-pdv/internal/lifecycle"
	"github.com/safar/beach-pdv/internal/models"
	"github.com/safar/beach-pdv/internal/store"
	"github.com/shopspring/decimal"
)

// fakeEngine returns err when set and otherwise echoes a plausible result,
// recording the principal of the last call.
type fakeEngine struct {
	err     error
	release *lifecycle.ReleaseResult
	last    access.Principal
	occupy  []string
}

func (f *fakeEngine) CreateOrder(_ context.Context, p access.Principal, req lifecycle.CreateOrderRequest) (*models.Order, error) {
	f.last = p
	if f.err != nil {
		return nil, f.err
	}
	return &models.Order{ID: "o1", SellerID: req.SellerID, TableID: req.TableID, Status: models.OrderStatusAwaiting, Total: decimal.NewFromInt(10)}, nil
}

func (f *fakeEngine) TransitionOrder(_ context.Context, p access.Principal, orderID string, target models.OrderStatus) (*models.Order, error) {
	f.last = p
	if f.err != nil {
		return nil, f.err
	}
	return &models.Order{ID: orderID, Status: target}, nil
}

func (f *fakeEngine) ReplaceOrderItems(_ context.Context, p access.Principal, orderID string, _ []lifecycle.ItemRequest) (*models.Order, error) {
	f.last = p
	if f.err != nil {
		return nil, f.err
	}
	return &models.Order{ID: orderID, Status: models.OrderStatusAwaiting}, nil
}

func (f *fakeEngine) DeleteOrder(_ context.Context, p access.Principal, _ string) error {
	f.last = p
	return f.err
}

func (f *fakeEngine) MarkOrderPaid(_ context.Context, p access.Principal, orderID string, method models.PaymentMethod) (*models.Order, error) {
	f.last = p
	if f.err != nil {
		return nil, f.err
	}
	return &models.Order{ID: orderID, IsPaid: true, PaymentMethod: method}, nil
}

func (f *fakeEngine) ReconcileTable(_ context.Context, p access.Principal, tableID string) (*models.Table, error) {
	f.last = p
	if f.err != nil {
		return nil, f.err
	}
	return &models.Table{ID: tableID, Status: models.TableStatusAvailable}, nil
}

func (f *fakeEngine) ReleaseTable(_ context.Context, p access.Principal, _ string) (*lifecycle.ReleaseResult, error) {
	f.last = p
	if f.err != nil {
		return nil, f.err
	}
	return f.release, nil
}

func (f *fakeEngine) CreateTables(_ context.Context, p access.Principal, quantity int) ([]models.Table, error) {
	f.last = p
	if f.err != nil {
		return nil, f.err
	}
	tables := make([]models.Table, quantity)
	for i := range tables {
		tables[i] = models.Table{Number: i + 1, SellerID: p.ID}
	}
	return tables, nil
}

func (f *fakeEngine) ReconcileSeller(_ context.Context, p access.Principal) ([]models.Table, error) {
	f.last = p
	return nil, f.err
}

func (f *fakeEngine) OccupyForClient(_ context.Context, client *models.User) (*models.Table, error) {
	if client.TableID == "" {
		return nil, nil
	}
	f.occupy = append(f.occupy, client.TableID)
	return &models.Table{ID: client.TableID, Status: models.TableStatusOccupied,
		CustomerName: client.DisplayName(), CustomerPhone: client.Phone}, nil
}

type fakeCatalog struct {
	users   map[string]*models.User
	tables  map[string]*models.Table
	orders  map[string]*models.Order
	err     error
	created []store.CreateUserRequest
	filter  []models.OrderStatus
	scope   string
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		users: map[string]*models.User{
			"seller": {ID: "seller", Username: "ze", Name: "Barraca do Zé", Role: models.RoleAdmin},
			"other":  {ID: "other", Username: "maria", Role: models.RoleAdmin},
			"carla":  {ID: "carla", Username: "carla", Role: models.RoleClient, SellerID: "seller"},
			"bruno":  {ID: "bruno", Username: "bruno", Role: models.RoleClient, SellerID: "seller"},
		},
		tables: map[string]*models.Table{
			"t1": {ID: "t1", Number: 1, SellerID: "seller", Status: models.TableStatusAvailable},
		},
		orders: map[string]*models.Order{
			"o1": {ID: "o1", SellerID: "seller", TableID: "t1", UserID: "carla", Status: models.OrderStatusAwaiting},
		},
	}
}

func (c *fakeCatalog) CreateUser(_ context.Context, req store.CreateUserRequest) (*models.User, error) {
	for _, u := range c.users {
		if u.Username == req.Username {
			return nil, database.ErrDuplicateUsername
		}
	}
	c.created = append(c.created, req)
	u := &models.User{ID: "new-" + req.Username, Username: req.Username, Name: req.Name, Role: req.Role,
		SellerID: req.SellerID, SellerName: req.SellerName, TableID: req.TableID, Phone: req.Phone}
	c.users[u.ID] = u
	return u, nil
}

func (c *fakeCatalog) GetUser(_ context.Context, id string) (*models.User, error) {
	u, ok := c.users[id]
	if !ok {
		return nil, database.ErrUserNotFound
	}
	return u, nil
}

func (c *fakeCatalog) ListSellers(context.Context) ([]models.User, error) {
	return nil, c.err
}

func (c *fakeCatalog) CreateTable(_ context.Context, sellerID, sellerName string, number int) (*models.Table, error) {
	for _, t := range c.tables {
		if t.SellerID == sellerID && t.Number == number {
			return nil, database.ErrDuplicateTableNumber
		}
	}
	t := &models.Table{ID: fmt.Sprintf("t-%s-%d", sellerID, number), Number: number, SellerID: sellerID,
		SellerName: sellerName, Status: models.TableStatusAvailable}
	c.tables[t.ID] = t
	return t, nil
}

func (c *fakeCatalog) DeleteTable(_ context.Context, id string) error {
	if _, ok := c.tables[id]; !ok {
		return database.ErrTableNotFound
	}
	for _, o := range c.orders {
		if o.TableID == id {
			return store.ErrTableInUse
		}
	}
	delete(c.tables, id)
	return nil
}

func (c *fakeCatalog) GetTable(_ context.Context, id string) (*models.Table, error) {
	t, ok := c.tables[id]
	if !ok {
		return nil, database.ErrTableNotFound
	}
	return t, nil
}

func (c *fakeCatalog) ListTablesBySeller(_ context.Context, sellerID string) ([]models.Table, error) {
	var out []models.Table
	for _, t := range c.tables {
		if t.SellerID == sellerID {
			out = append(out, *t)
		}
	}
	return out, c.err
}

func (c *fakeCatalog) ListAvailableTablesBySeller(ctx context.Context, sellerID string) ([]models.Table, error) {
	return c.ListTablesBySeller(ctx, sellerID)
}

func (c *fakeCatalog) CreateProduct(_ context.Context, sellerID, sellerName string, in store.ProductInput) (*models.Product, error) {
	return &models.Product{ID: "p1", SellerID: sellerID, SellerName: sellerName, Name: in.Name, Price: in.Price, IsActive: true}, c.err
}

func (c *fakeCatalog) UpdateProduct(_ context.Context, id, sellerID string, in store.ProductInput) (*models.Product, error) {
	if id != "p1" {
		return nil, database.ErrProductNotFound
	}
	return &models.Product{ID: id, SellerID: sellerID, Name: in.Name, Price: in.Price}, nil
}

func (c *fakeCatalog) DeleteProduct(_ context.Context, id, _ string) error {
	if id != "p1" {
		return database.ErrProductNotFound
	}
	return nil
}

func (c *fakeCatalog) ListProductsBySeller(_ context.Context, sellerID string, _ bool) ([]models.Product, error) {
	return []models.Product{{ID: "p1", SellerID: sellerID, Name: "Coco", Price: decimal.RequireFromString("8.50"), IsActive: true}}, c.err
}

func (c *fakeCatalog) GetOrder(_ context.Context, id string) (*models.Order, error) {
	o, ok := c.orders[id]
	if !ok {
		return nil, database.ErrOrderNotFound
	}
	return o, nil
}

func (c *fakeCatalog) ListOrdersByTable(_ context.Context, tableID string) ([]models.Order, error) {
	var out []models.Order
	for _, o := range c.orders {
		if o.TableID == tableID {
			out = append(out, *o)
		}
	}
	return out, c.err
}

func (c *fakeCatalog) ListOrdersBySeller(_ context.Context, _ string, statuses ...models.OrderStatus) ([]models.Order, error) {
	c.filter = statuses
	return nil, c.err
}

func (c *fakeCatalog) ListOrdersCursor(_ context.Context, userID, sellerID, cursor string, _ int) (*store.CursorPage, error) {
	if _, err := store.DecodeCursor(cursor); err != nil {
		return nil, err
	}
	c.scope = sellerID
	var out []models.Order
	for _, o := range c.orders {
		if o.UserID == userID && (sellerID == "" || o.SellerID == sellerID) {
			out = append(out, *o)
		}
	}
	if out == nil {
		out = []models.Order{}
	}
	return &store.CursorPage{Items: out}, c.err
}

func (c *fakeCatalog) RevenueSummary(context.Context, string) (*models.RevenueSummary, error) {
	return &models.RevenueSummary{Today: decimal.NewFromInt(15)}, c.err
}

func (c *fakeCatalog) DailyRevenue(context.Context, string) ([]models.RevenuePoint, error) {
	return []models.RevenuePoint{{Period: "2026-03-15", Total: decimal.NewFromInt(15)}}, c.err
}

func (c *fakeCatalog) MonthlyRevenue(context.Context, string) ([]models.RevenuePoint, error) {
	return []models.RevenuePoint{{Period: "2026-03", Total: decimal.NewFromInt(35)}}, c.err
}

func (c *fakeCatalog) YearlyRevenue(context.Context, string) ([]models.RevenuePoint, error) {
	return []models.RevenuePoint{{Period: "2026", Total: decimal.NewFromInt(75)}}, c.err
}

func (c *fakeCatalog) DailyOrders(context.Context, string) (*models.DailyOrders, error) {
	return &models.DailyOrders{Count: 2, Total: decimal.NewFromInt(15)}, c.err
}

type harness struct {
	engine  *fakeEngine
	catalog *fakeCatalog
	handler http.Handler
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	engine := &fakeEngine{}
	catalog := newFakeCatalog()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &harness{engine: engine, catalog: catalog, handler: New(engine, catalog, log).Routes()}
}

// do sends body (may be empty) as user; an empty user is anonymous.
func (h *harness) do(method, path, user, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if user != "" {
		req.Header.Set(UserHeader, user)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}
