package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleClient Role = "client"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleClient
}

type User struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Name       string    `json:"name,omitempty"`
	Role       Role      `json:"role"`
	SellerID   string    `json:"seller_id,omitempty"`
	SellerName string    `json:"seller_name,omitempty"`
	TableID    string    `json:"table_id,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DisplayName is what gets snapshotted onto orders and tables.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

type TableStatus string

const (
	TableStatusAvailable TableStatus = "available"
	TableStatusOccupied  TableStatus = "occupied"
)

type Table struct {
	ID            string      `json:"id"`
	Number        int         `json:"number"`
	Status        TableStatus `json:"status"`
	SellerID      string      `json:"seller_id"`
	SellerName    string      `json:"seller_name,omitempty"`
	CustomerName  string      `json:"customer_name,omitempty"`
	CustomerPhone string      `json:"customer_phone,omitempty"`
	OccupiedAt    *time.Time  `json:"occupied_at,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
	Version       int         `json:"version"`
}

type Product struct {
	ID          string          `json:"id"`
	SellerID    string          `json:"seller_id"`
	SellerName  string          `json:"seller_name,omitempty"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category,omitempty"`
	Price       decimal.Decimal `json:"price"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type OrderStatus string

const (
	OrderStatusAwaiting  OrderStatus = "aguardando"
	OrderStatusPreparing OrderStatus = "em_preparo"
	OrderStatusDelivered OrderStatus = "entregue"
	OrderStatusCancelled OrderStatus = "cancelado"
	OrderStatusArchived  OrderStatus = "arquivado"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusAwaiting, OrderStatusPreparing, OrderStatusDelivered, OrderStatusCancelled, OrderStatusArchived:
		return true
	}
	return false
}

// Active orders keep their table occupied.
func (s OrderStatus) Active() bool {
	return s == OrderStatusAwaiting || s == OrderStatusPreparing
}

// RevenueStatuses are the statuses counted by the revenue reports.
var RevenueStatuses = []OrderStatus{OrderStatusDelivered, OrderStatusArchived}

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "dinheiro"
	PaymentCredit PaymentMethod = "cartao_credito"
	PaymentDebit  PaymentMethod = "cartao_debito"
	PaymentPix    PaymentMethod = "pix"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCredit, PaymentDebit, PaymentPix:
		return true
	}
	return false
}

type Order struct {
	ID            string          `json:"id"`
	OrderCode     int             `json:"order_code"`
	TableID       string          `json:"table_id"`
	TableNumber   int             `json:"table_number"`
	Items         []OrderItem     `json:"items"`
	Total         decimal.Decimal `json:"total"`
	Status        OrderStatus     `json:"status"`
	UserID        string          `json:"user_id,omitempty"`
	UserName      string          `json:"user_name,omitempty"`
	SellerID      string          `json:"seller_id"`
	SellerName    string          `json:"seller_name,omitempty"`
	IsPaid        bool            `json:"is_paid"`
	PaymentMethod PaymentMethod   `json:"payment_method,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Version       int             `json:"version"`
}

type OrderItem struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Notes       string          `json:"notes,omitempty"`
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderTotal is the only way an order total is derived.
func OrderTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

type RevenueSummary struct {
	Today     decimal.Decimal `json:"today"`
	ThisMonth decimal.Decimal `json:"this_month"`
	ThisYear  decimal.Decimal `json:"this_year"`
}

// RevenuePoint is one bucket of a daily (YYYY-MM-DD), monthly (YYYY-MM) or
// yearly (YYYY) revenue series.
type RevenuePoint struct {
	Period string          `json:"period"`
	Total  decimal.Decimal `json:"total"`
}

type DailyOrders struct {
	Count int64           `json:"count"`
	Total decimal.Decimal `json:"total"`
}
