// Package api is the HTTP/JSON boundary. It resolves the caller, decodes the
// request, calls the lifecycle engine or the store and maps errors to status
// codes.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/safar/beach-pdv/internal/access"
	"github.com/safar/beach-pdv/internal/database"
	"github.com/safar/beach-pdv/internal/lifecycle"
	"github.com/safar/beach-pdv/internal/logger"
	"github.com/safar/beach-pdv/internal/models"
	"github.com/safar/beach-pdv/internal/store"
)

// UserHeader carries the authenticated user id, set by the gateway in front
// of the service.
const UserHeader = "X-User-ID"

type Engine interface {
	CreateOrder(ctx context.Context, p access.Principal, req lifecycle.CreateOrderRequest) (*models.Order, error)
	TransitionOrder(ctx context.Context, p access.Principal, orderID string, target models.OrderStatus) (*models.Order, error)
	ReplaceOrderItems(ctx context.Context, p access.Principal, orderID string, reqs []lifecycle.ItemRequest) (*models.Order, error)
	DeleteOrder(ctx context.Context, p access.Principal, orderID string) error
	MarkOrderPaid(ctx context.Context, p access.Principal, orderID string, method models.PaymentMethod) (*models.Order, error)
	ReconcileTable(ctx context.Context, p access.Principal, tableID string) (*models.Table, error)
	ReleaseTable(ctx context.Context, p access.Principal, tableID string) (*lifecycle.ReleaseResult, error)
	CreateTables(ctx context.Context, p access.Principal, quantity int) ([]models.Table, error)
	ReconcileSeller(ctx context.Context, p access.Principal) ([]models.Table, error)
	OccupyForClient(ctx context.Context, client *models.User) (*models.Table, error)
}

// Catalog is the read side and the plain CRUD the engine does not own.
type Catalog interface {
	CreateUser(ctx context.Context, req store.CreateUserRequest) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	ListSellers(ctx context.Context) ([]models.User, error)

	CreateTable(ctx context.Context, sellerID, sellerName string, number int) (*models.Table, error)
	DeleteTable(ctx context.Context, id string) error
	GetTable(ctx context.Context, id string) (*models.Table, error)
	ListTablesBySeller(ctx context.Context, sellerID string) ([]models.Table, error)
	ListAvailableTablesBySeller(ctx context.Context, sellerID string) ([]models.Table, error)

	CreateProduct(ctx context.Context, sellerID, sellerName string, in store.ProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, id, sellerID string, in store.ProductInput) (*models.Product, error)
	DeleteProduct(ctx context.Context, id, sellerID string) error
	ListProductsBySeller(ctx context.Context, sellerID string, activeOnly bool) ([]models.Product, error)

	GetOrder(ctx context.Context, id string) (*models.Order, error)
	ListOrdersByTable(ctx context.Context, tableID string) ([]models.Order, error)
	ListOrdersBySeller(ctx context.Context, sellerID string, statuses ...models.OrderStatus) ([]models.Order, error)
	ListOrdersCursor(ctx context.Context, userID, sellerID, cursor string, limit int) (*store.CursorPage, error)

	RevenueSummary(ctx context.Context, sellerID string) (*models.RevenueSummary, error)
	DailyRevenue(ctx context.Context, sellerID string) ([]models.RevenuePoint, error)
	MonthlyRevenue(ctx context.Context, sellerID string) ([]models.RevenuePoint, error)
	YearlyRevenue(ctx context.Context, sellerID string) ([]models.RevenuePoint, error)
	DailyOrders(ctx context.Context, sellerID string) (*models.DailyOrders, error)
}

type Handler struct {
	engine  Engine
	catalog Catalog
	log     *slog.Logger
	checks  map[string]func(context.Context) error
}

func New(engine Engine, catalog Catalog, log *slog.Logger) *Handler {
	return &Handler{
		engine:  engine,
		catalog: catalog,
		log:     log,
		checks:  make(map[string]func(context.Context) error),
	}
}

// AddHealthCheck registers a dependency checked by GET /healthz.
func (h *Handler) AddHealthCheck(name string, check func(context.Context) error) {
	h.checks[name] = check
}

// Routes returns the full router wrapped in request logging.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /users", h.registerUser)
	mux.HandleFunc("GET /users/{id}/orders", h.orderHistory)
	mux.HandleFunc("GET /sellers", h.listSellers)
	mux.HandleFunc("GET /sellers/{sellerID}/tables/available", h.availableTables)
	mux.HandleFunc("GET /sellers/{sellerID}/menu", h.menu)

	mux.HandleFunc("GET /tables", h.listTables)
	mux.HandleFunc("POST /tables", h.createTables)
	mux.HandleFunc("POST /tables/reconcile", h.reconcileSeller)
	mux.HandleFunc("POST /tables/{id}/reconcile", h.reconcileTable)
	mux.HandleFunc("POST /tables/{id}/release", h.releaseTable)
	mux.HandleFunc("DELETE /tables/{id}", h.deleteTable)
	mux.HandleFunc("GET /tables/{id}/orders", h.tableOrders)

	mux.HandleFunc("POST /products", h.createProduct)
	mux.HandleFunc("PUT /products/{id}", h.updateProduct)
	mux.HandleFunc("DELETE /products/{id}", h.deleteProduct)

	mux.HandleFunc("GET /orders", h.listOrders)
	mux.HandleFunc("POST /orders", h.createOrder)
	mux.HandleFunc("GET /orders/{id}", h.getOrder)
	mux.HandleFunc("PATCH /orders/{id}/status", h.transitionOrder)
	mux.HandleFunc("PUT /orders/{id}/items", h.replaceItems)
	mux.HandleFunc("POST /orders/{id}/payment", h.markPaid)
	mux.HandleFunc("DELETE /orders/{id}", h.deleteOrder)

	mux.HandleFunc("GET /stats/revenue/{period}", h.revenue)
	mux.HandleFunc("GET /stats/orders/daily", h.dailyOrders)

	mux.HandleFunc("GET /healthz", h.health)

	return logger.Middleware(h.log, mux)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	report := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(r.Context()); err != nil {
			h.log.Warn("health check failed", "check", name, "error", err)
			report[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		report[name] = "ok"
	}
	writeJSON(w, status, report)
}

var errUnauthenticated = errors.New("unknown user")

// principal resolves the caller from UserHeader. No header means an
// anonymous walk-up customer.
func (h *Handler) principal(r *http.Request) (access.Principal, error) {
	id := r.Header.Get(UserHeader)
	if id == "" {
		return access.Principal{}, nil
	}

	user, err := h.catalog.GetUser(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		return access.Principal{}, errUnauthenticated
	}
	if err != nil {
		return access.Principal{}, err
	}

	return access.PrincipalFromUser(user), nil
}
