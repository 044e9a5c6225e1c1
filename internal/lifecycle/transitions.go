package lifecycle

import (
	"github.com/safar/beach-pdv/internal/models"
)

type edge struct {
	// owning clients may take this edge too; admins always may
	client bool
}

var transitions = map[models.OrderStatus]map[models.OrderStatus]edge{
	models.OrderStatusAwaiting: {
		models.OrderStatusPreparing: {},
		models.OrderStatusCancelled: {client: true},
	},
	models.OrderStatusPreparing: {
		models.OrderStatusDelivered: {},
	},
	models.OrderStatusDelivered: {
		models.OrderStatusArchived: {},
	},
}

// CanTransition reports whether the state machine has an edge from -> to,
// regardless of who asks.
func CanTransition(from, to models.OrderStatus) bool {
	_, ok := transitions[from][to]
	return ok
}

// CheckTransition applies the role rules and then the state machine. Callers
// must already have established that a client role owns the order.
func CheckTransition(from, to models.OrderStatus, role models.Role) error {
	admin := role == models.RoleAdmin

	if from == models.OrderStatusPreparing && to != models.OrderStatusPreparing && !admin {
		return forbidden("only the seller can move an order out of preparation")
	}
	if from == models.OrderStatusAwaiting && to == models.OrderStatusPreparing && !admin {
		return forbidden("only the seller can start preparing an order")
	}
	if from == models.OrderStatusPreparing && role == models.RoleClient {
		return forbidden("order is already being prepared")
	}

	if !CanTransition(from, to) {
		return &TransitionError{From: from, To: to}
	}
	if !admin && !(transitions[from][to].client && role == models.RoleClient) {
		return forbidden("only the seller can move an order to " + string(to))
	}

	return nil
}
