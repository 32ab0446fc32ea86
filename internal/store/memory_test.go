package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickcart/catalog-api/internal/models"
)

func seedProducts(t *testing.T, s *MemoryStore, n int) []models.Product {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	products := make([]models.Product, 0, n)
	for i := 0; i < n; i++ {
		p := models.Product{
			ProductID:   fmt.Sprintf("p-%03d", i),
			Name:        fmt.Sprintf("Product %d", i),
			Description: fmt.Sprintf("Description %d", i),
			Price:       float64(i) + 0.99,
			Category:    "General",
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
			UpdatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, s.CreateProduct(ctx, &p))
		products = append(products, p)
	}
	return products
}

func TestMemoryStore_UserRoundtrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.GetUserByUsername(ctx, "alice")
	assert.ErrorIs(t, err, ErrUserNotFound)

	user := &models.User{UserID: "u-1", Username: "alice", PasswordHash: "hash"}
	require.NoError(t, s.CreateUser(ctx, user))

	got, err := s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.UserID)
	assert.Equal(t, "hash", got.PasswordHash)

	assert.ErrorIs(t, s.CreateUser(ctx, user), ErrUserExists)
}

func TestMemoryStore_ProductCRUD(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	p := models.Product{
		ProductID:   "p-1",
		Name:        "Linen Shirt",
		Description: "Breathable summer shirt",
		Price:       39.99,
		Category:    "Shirts",
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, s.CreateProduct(ctx, &p))

	got, err := s.GetProduct(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
	assert.Equal(t, p.Description, got.Description)
	assert.Equal(t, p.Price, got.Price)
	assert.Equal(t, p.Category, got.Category)

	updated := p
	updated.Name = "Linen Shirt v2"
	updated.Price = 44.99
	require.NoError(t, s.UpdateProduct(ctx, &updated))

	got, err = s.GetProduct(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, "Linen Shirt v2", got.Name)
	assert.Equal(t, 44.99, got.Price)
	assert.Equal(t, p.CreatedAt, got.CreatedAt)

	require.NoError(t, s.DeleteProduct(ctx, "p-1"))
	assert.ErrorIs(t, s.DeleteProduct(ctx, "p-1"), ErrProductNotFound)

	_, err = s.GetProduct(ctx, "p-1")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestMemoryStore_UpdateMissingProduct(t *testing.T) {
	s := NewMemoryStore()

	err := s.UpdateProduct(context.Background(), &models.Product{ProductID: "ghost"})
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestMemoryStore_ListPagination(t *testing.T) {
	s := NewMemoryStore()
	seedProducts(t, s, 15)
	ctx := context.Background()

	page1, err := s.ListProducts(ctx, PageRequest{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page1.Products, 10)
	assert.Equal(t, 15, page1.Total)
	assert.Equal(t, 2, page1.TotalPages)
	assert.Equal(t, "p-000", page1.Products[0].ProductID)

	page2, err := s.ListProducts(ctx, PageRequest{Page: 2, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page2.Products, 5)
	assert.Equal(t, 15, page2.Total)
	assert.Equal(t, 2, page2.TotalPages)
	assert.Equal(t, "p-010", page2.Products[0].ProductID)

	// Past the end: empty page, same totals.
	page3, err := s.ListProducts(ctx, PageRequest{Page: 3, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, page3.Products)
	assert.Equal(t, 15, page3.Total)
}

func TestMemoryStore_ListEmpty(t *testing.T) {
	s := NewMemoryStore()

	page, err := s.ListProducts(context.Background(), PageRequest{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, page.Products)
	assert.Equal(t, 0, page.Total)
	assert.Equal(t, 0, page.TotalPages)
}

func TestMemoryStore_SearchAcrossFields(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	now := time.Now().UTC()
	for i, p := range []models.Product{
		{Name: "Oxford shirt", Description: "Classic fit", Category: "Tops"},
		{Name: "Chinos", Description: "Pairs well with a shirt", Category: "Trousers"},
		{Name: "Crew tee", Description: "Plain cotton", Category: "Shirts"},
		{Name: "Wool socks", Description: "Warm", Category: "Accessories"},
	} {
		p.ProductID = fmt.Sprintf("p-%d", i)
		p.Price = 10
		p.CreatedAt = now.Add(time.Duration(i) * time.Second)
		require.NoError(t, s.CreateProduct(ctx, &p))
	}

	// Case-insensitive, OR across name, description, category.
	page, err := s.SearchProducts(ctx, "SHIRT", PageRequest{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Products, 3)
	assert.Equal(t, 3, page.Total)

	page, err = s.SearchProducts(ctx, "wool", PageRequest{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Products, 1)
	assert.Equal(t, "Wool socks", page.Products[0].Name)

	page, err = s.SearchProducts(ctx, "no-such-thing", PageRequest{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, page.Products)
	assert.Equal(t, 0, page.TotalPages)
}

func TestPageRequest_Normalize(t *testing.T) {
	tests := []struct {
		name      string
		in        PageRequest
		wantPage  int
		wantLimit int
	}{
		{"zero values", PageRequest{}, 1, 10},
		{"negative page", PageRequest{Page: -2, Limit: 5}, 1, 5},
		{"zero limit", PageRequest{Page: 3, Limit: 0}, 3, 10},
		{"valid", PageRequest{Page: 2, Limit: 25}, 2, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Normalize()
			assert.Equal(t, tt.wantPage, got.Page)
			assert.Equal(t, tt.wantLimit, got.Limit)
		})
	}
}
