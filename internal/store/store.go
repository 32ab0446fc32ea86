package store

import (
	"context"
	"errors"

	"github.com/quickcart/catalog-api/internal/models"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrUserExists      = errors.New("user already exists")
	ErrProductNotFound = errors.New("product not found")
)

// UserStore persists credentials. Usernames are checked for uniqueness by
// the caller before CreateUser; the check-then-create pair is not atomic,
// so concurrent registration of the same username can race.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// ProductStore persists catalog entries. List and Search page results in
// natural storage order (creation order) using offset pagination.
type ProductStore interface {
	CreateProduct(ctx context.Context, product *models.Product) error
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	UpdateProduct(ctx context.Context, product *models.Product) error
	DeleteProduct(ctx context.Context, id string) error
	ListProducts(ctx context.Context, page PageRequest) (*models.ProductPage, error)
	SearchProducts(ctx context.Context, query string, page PageRequest) (*models.ProductPage, error)
}

// Store is the full persistence surface of the service
type Store interface {
	UserStore
	ProductStore

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
}
