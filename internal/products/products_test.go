package products

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusForQuantity(t *testing.T) {
	tests := []struct {
		quantity int
		want     string
	}{
		{0, StatusOutOfStock},
		{1, StatusLowStock},
		{9, StatusLowStock},
		{10, StatusLowStock},
		{11, StatusInStock},
		{100, StatusInStock},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusForQuantity(tt.quantity), "quantity %d", tt.quantity)
	}
}

func TestInsertProduct_DerivesStatusTier(t *testing.T) {
	conf, err := NewConf(NewMemoryStore())
	require.NoError(t, err)

	p, err := conf.InsertProduct(context.Background(), "retailer-1", NewProduct{
		Name: "Widget", Price: 9.99, Quantity: 3,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "retailer-1", p.RetailerID)
	assert.Equal(t, StatusLowStock, p.Status)
}

func TestUpdateProduct_OwnershipGate(t *testing.T) {
	store := NewMemoryStore()
	conf, err := NewConf(store)
	require.NoError(t, err)

	p, err := conf.InsertProduct(context.Background(), "retailer-1", NewProduct{
		Name: "Widget", Price: 9.99, Quantity: 3,
	})
	require.NoError(t, err)

	p.Quantity = 50
	_, err = conf.UpdateProduct(context.Background(), "retailer-2", p.ID, p)
	assert.ErrorIs(t, err, ErrNotOwner)

	updated, err := conf.UpdateProduct(context.Background(), "retailer-1", p.ID, p)
	require.NoError(t, err)
	assert.Equal(t, 50, updated.Quantity)
	assert.Equal(t, StatusInStock, updated.Status)
}

func TestDeleteProduct(t *testing.T) {
	store := NewMemoryStore()
	conf, err := NewConf(store)
	require.NoError(t, err)

	p, err := conf.InsertProduct(context.Background(), "retailer-1", NewProduct{
		Name: "Widget", Price: 9.99, Quantity: 3,
	})
	require.NoError(t, err)

	assert.ErrorIs(t, conf.DeleteProduct(context.Background(), "retailer-2", p.ID), ErrNotOwner)
	require.NoError(t, conf.DeleteProduct(context.Background(), "retailer-1", p.ID))
	_, err = conf.GetByID(context.Background(), p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_DecrementIfAvailable(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Insert(context.Background(), Product{ID: "p1", Name: "Widget", Quantity: 5, Status: StatusLowStock})
	require.NoError(t, err)

	assert.True(t, store.DecrementIfAvailable("p1", 5))
	assert.False(t, store.DecrementIfAvailable("p1", 1))

	p, err := store.GetByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Quantity)
	assert.Equal(t, StatusOutOfStock, p.Status)
}

func TestMemoryStore_ListFilterAndPaging(t *testing.T) {
	store := NewMemoryStore()
	conf, err := NewConf(store)
	require.NoError(t, err)

	for _, np := range []NewProduct{
		{Name: "Alpha Widget", Category: "tools", Price: 1, Quantity: 1},
		{Name: "Beta Widget", Category: "tools", Price: 2, Quantity: 2},
		{Name: "Gamma Gadget", Category: "toys", Price: 3, Quantity: 3},
	} {
		_, err := conf.InsertProduct(context.Background(), "retailer-1", np)
		require.NoError(t, err)
	}

	list, err := conf.List(context.Background(), ListFilter{Category: "tools"})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = conf.List(context.Background(), ListFilter{Name: "widget"})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = conf.List(context.Background(), ListFilter{Limit: 1, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
