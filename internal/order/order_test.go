package order

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/emporium/internal/cart"
	"github.com/roach88/emporium/internal/catalog"
)

func testCart(t *testing.T) *cart.Cart {
	t.Helper()
	cat, err := catalog.New([]catalog.Product{
		{ID: 1, Name: "Fresh Bananas", Description: "Sweet ripe bananas", Category: "fruits"},
		{ID: 2, Name: "Whole Wheat Bread", Description: "Freshly baked", Category: "bakery"},
		{ID: 3, Name: "Fresh Milk", Description: "1 litre", Category: "dairy"},
	})
	require.NoError(t, err)
	return cart.New(cat)
}

// filledCart holds two bananas and one milk.
func filledCart(t *testing.T) *cart.Cart {
	t.Helper()
	c := testCart(t)
	_, err := c.AddItem(1, 2)
	require.NoError(t, err)
	_, err = c.AddItem(3, 1)
	require.NoError(t, err)
	return c
}

func validFields(priority string) Fields {
	return Fields{
		CustomerName:     "Siti Aminah",
		CustomerPhone:    "+673 7123456",
		PickupLocation:   "Batu Satu Branch",
		CollectionMethod: "Store Pickup",
		PreferredTime:    "10:00 AM - 10:30 AM",
		Priority:         priority,
	}
}
