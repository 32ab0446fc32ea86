package store

import (
	"context"
	"sync"

	"github.com/quickcart/catalog-api/internal/models"
)

// MemoryStore is an in-process Store used for local development and tests.
// Contents are lost on restart and not shared across worker processes.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]*models.User    // keyed by user_id
	products map[string]*models.Product // keyed by product_id
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]*models.User),
		products: make(map[string]*models.Product),
	}
}

func (s *MemoryStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.UserID]; exists {
		return ErrUserExists
	}

	u := *user
	s.users[user.UserID] = &u
	return nil
}

func (s *MemoryStore) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			user := *u
			return &user, nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *MemoryStore) CreateProduct(_ context.Context, product *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := *product
	s.products[product.ProductID] = &p
	return nil
}

func (s *MemoryStore) GetProduct(_ context.Context, id string) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.products[id]
	if !exists {
		return nil, ErrProductNotFound
	}
	product := *p
	return &product, nil
}

func (s *MemoryStore) UpdateProduct(_ context.Context, product *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.products[product.ProductID]
	if !exists {
		return ErrProductNotFound
	}

	// Full replace of the mutable fields, creation time survives.
	product.CreatedAt = existing.CreatedAt
	p := *product
	s.products[product.ProductID] = &p
	return nil
}

func (s *MemoryStore) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[id]; !exists {
		return ErrProductNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *MemoryStore) ListProducts(_ context.Context, page PageRequest) (*models.ProductPage, error) {
	return buildPage(s.snapshot(), page), nil
}

func (s *MemoryStore) SearchProducts(_ context.Context, query string, page PageRequest) (*models.ProductPage, error) {
	return buildPage(filterProducts(s.snapshot(), query), page), nil
}

func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}

func (s *MemoryStore) snapshot() []models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		items = append(items, *p)
	}
	sortByCreation(items)
	return items
}
