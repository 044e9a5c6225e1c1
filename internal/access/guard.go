// Package access decides whether a principal may act on sellers' tables and
// orders. Every check returns a Decision; callers turn a denial into an error
// with Decision.Err.
package access

import (
	"errors"

	"github.com/safar/beach-pdv/internal/models"
)

var ErrForbidden = errors.New("forbidden")

// ForbiddenError carries the reason a request was denied. It matches
// ErrForbidden under errors.Is.
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string {
	if e.Reason == "" {
		return ErrForbidden.Error()
	}
	return "forbidden: " + e.Reason
}

func (e *ForbiddenError) Is(target error) bool {
	return target == ErrForbidden
}

// Principal is the authenticated caller. The zero value is an anonymous
// walk-up customer.
type Principal struct {
	ID       string
	Name     string
	Role     models.Role
	SellerID string
	TableID  string
}

func PrincipalFromUser(u *models.User) Principal {
	return Principal{
		ID:       u.ID,
		Name:     u.DisplayName(),
		Role:     u.Role,
		SellerID: u.SellerID,
		TableID:  u.TableID,
	}
}

func (p Principal) IsAdmin() bool { return p.Role == models.RoleAdmin }

func (p Principal) IsClient() bool { return p.Role == models.RoleClient }

func (p Principal) Anonymous() bool { return p.ID == "" }

func (p Principal) Owns(o *models.Order) bool {
	return !p.Anonymous() && o.UserID == p.ID
}

type Decision struct {
	Allowed bool
	Reason  string
}

func Allow() Decision { return Decision{Allowed: true} }

func Deny(reason string) Decision { return Decision{Reason: reason} }

func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &ForbiddenError{Reason: d.Reason}
}

func RequireAdmin(p Principal) Decision {
	if !p.IsAdmin() {
		return Deny("admin role required")
	}
	return Allow()
}

// ManageSeller allows an admin to act on entities it owns.
func ManageSeller(p Principal, sellerID string) Decision {
	if d := RequireAdmin(p); !d.Allowed {
		return d
	}
	if sellerID != p.ID {
		return Deny("entity belongs to another seller")
	}
	return Allow()
}

func ManageTable(p Principal, t *models.Table) Decision {
	return ManageSeller(p, t.SellerID)
}

// PlaceOrder checks the seller the order is placed with. Clients bound to a
// seller may only order from that seller's menu; admins only at their own cart.
func PlaceOrder(p Principal, sellerID string) Decision {
	switch {
	case p.IsAdmin():
		if sellerID != p.ID {
			return Deny("admins can only place orders at their own cart")
		}
	case p.IsClient():
		if p.SellerID != "" && p.SellerID != sellerID {
			return Deny("client is bound to another seller")
		}
	}
	return Allow()
}

// TouchOrder allows the owning seller, or the client who placed the order.
func TouchOrder(p Principal, o *models.Order) Decision {
	if p.IsAdmin() {
		return ManageSeller(p, o.SellerID)
	}
	if p.IsClient() && p.Owns(o) {
		return Allow()
	}
	return Deny("order belongs to another user")
}

// ViewHistory restricts a client to its own order history. Admins pass but
// only see the orders placed with them, see HistoryScope.
func ViewHistory(p Principal, userID string) Decision {
	if p.IsAdmin() {
		return Allow()
	}
	if p.IsClient() && p.ID == userID {
		return Allow()
	}
	return Deny("clients can only view their own orders")
}

// HistoryScope is the seller filter applied to an order history query: the
// admin's own id, or empty for a client reading its own history.
func HistoryScope(p Principal) string {
	if p.IsAdmin() {
		return p.ID
	}
	return ""
}
