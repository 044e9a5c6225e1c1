package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestOrderTotal(t *testing.T) {
	items := []OrderItem{
		{ProductID: "p1", Price: decimal.RequireFromString("12.50"), Quantity: 2},
		{ProductID: "p2", Price: decimal.RequireFromString("3.10"), Quantity: 3},
	}

	assert.True(t, OrderTotal(items).Equal(decimal.RequireFromString("34.30")))
	assert.True(t, OrderTotal(nil).Equal(decimal.Zero))
}

func TestOrderStatusPredicates(t *testing.T) {
	assert.True(t, OrderStatusAwaiting.Active())
	assert.True(t, OrderStatusPreparing.Active())
	assert.False(t, OrderStatusDelivered.Active())

	assert.False(t, OrderStatusCancelled.Active())
	assert.False(t, OrderStatusArchived.Active())

	assert.False(t, OrderStatus("paid").Valid())
}

func TestUserDisplayName(t *testing.T) {
	assert.Equal(t, "Ana", (&User{Username: "ana99", Name: "Ana"}).DisplayName())
	assert.Equal(t, "ana99", (&User{Username: "ana99"}).DisplayName())
}
