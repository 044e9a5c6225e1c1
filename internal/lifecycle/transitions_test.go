package lifecycle

import (
	"errors"
	"testing"

	"github.com/safar/beach-pdv/internal/models"
	"github.com/stretchr/testify/assert"
)

var allStatuses = []models.OrderStatus{
	models.OrderStatusAwaiting,
	models.OrderStatusPreparing,
	models.OrderStatusDelivered,
	models.OrderStatusCancelled,
	models.OrderStatusArchived,
}

func TestCheckTransitionAdminEdges(t *testing.T) {
	allowed := map[[2]models.OrderStatus]bool{
		{models.OrderStatusAwaiting, models.OrderStatusPreparing}:  true,
		{models.OrderStatusAwaiting, models.OrderStatusCancelled}:  true,
		{models.OrderStatusPreparing, models.OrderStatusDelivered}: true,
		{models.OrderStatusDelivered, models.OrderStatusArchived}:  true,
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			err := CheckTransition(from, to, models.RoleAdmin)
			if allowed[[2]models.OrderStatus{from, to}] {
				assert.NoError(t, err, "%s -> %s", from, to)
				continue
			}
			assert.ErrorIs(t, err, ErrInvalidTransition, "%s -> %s", from, to)
			assert.Equal(t, allowed[[2]models.OrderStatus{from, to}], CanTransition(from, to))
		}
	}
}

func TestCheckTransitionClientFromPreparingAlwaysForbidden(t *testing.T) {
	for _, to := range allStatuses {
		err := CheckTransition(models.OrderStatusPreparing, to, models.RoleClient)
		assert.ErrorIs(t, err, ErrForbidden, "em_preparo -> %s", to)
	}
}

func TestCheckTransitionClientCannotStartPreparation(t *testing.T) {
	err := CheckTransition(models.OrderStatusAwaiting, models.OrderStatusPreparing, models.RoleClient)
	assert.ErrorIs(t, err, ErrForbidden)

	assert.NoError(t, CheckTransition(models.OrderStatusAwaiting, models.OrderStatusPreparing, models.RoleAdmin))
}

func TestCheckTransitionClientMayCancelAwaiting(t *testing.T) {
	assert.NoError(t, CheckTransition(models.OrderStatusAwaiting, models.OrderStatusCancelled, models.RoleClient))
}

func TestCheckTransitionClientCannotArchive(t *testing.T) {
	err := CheckTransition(models.OrderStatusDelivered, models.OrderStatusArchived, models.RoleClient)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCheckTransitionFromTerminalIsInvalid(t *testing.T) {
	for _, from := range []models.OrderStatus{models.OrderStatusCancelled, models.OrderStatusArchived} {
		for _, to := range allStatuses {
			for _, role := range []models.Role{models.RoleAdmin, models.RoleClient} {
				err := CheckTransition(from, to, role)
				assert.ErrorIs(t, err, ErrInvalidTransition, "%s -> %s as %s", from, to, role)
				assert.False(t, errors.Is(err, ErrForbidden))
			}
		}
	}
}

func TestTransitionErrorMessage(t *testing.T) {
	err := &TransitionError{From: models.OrderStatusCancelled, To: models.OrderStatusAwaiting}
	assert.Equal(t, "invalid status transition cancelado -> aguardando", err.Error())
}
