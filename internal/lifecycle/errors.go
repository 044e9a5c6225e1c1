package lifecycle

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/safar/beach-pdv/internal/access"
	"github.com/safar/beach-pdv/internal/database"
	"github.com/safar/beach-pdv/internal/models"
)

var (
	ErrForbidden            = access.ErrForbidden
	ErrNotFound             = database.ErrNotFound
	ErrConflict             = database.ErrOptimisticLockFailed
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrDuplicateActiveTable = errors.New("client already has active orders at another table")
	ErrInvalidQuantity      = errors.New("quantity must be greater than zero")
	ErrInvalidItems         = errors.New("invalid order items")
	ErrInvalidPayment       = errors.New("invalid payment")
)

type TransitionError struct {
	From models.OrderStatus
	To   models.OrderStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

func forbidden(reason string) error {
	return access.Deny(reason).Err()
}

func invalidItems(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidItems, fmt.Sprintf(format, args...))
}

// ReleaseError lists the delivered orders that could not be archived while
// releasing a table. The table itself was still freed.
type ReleaseError struct {
	TableID  string
	Failures map[string]error
}

func (e *ReleaseError) Error() string {
	ids := make([]string, 0, len(e.Failures))
	for id := range e.Failures {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%s: %v", id, e.Failures[id]))
	}
	return fmt.Sprintf("release table %s: %d order(s) not archived (%s)",
		e.TableID, len(ids), strings.Join(parts, "; "))
}
