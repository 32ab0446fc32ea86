package routes

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/quickcart/catalog-api/internal/metrics"
	"github.com/quickcart/catalog-api/internal/models"
	"github.com/quickcart/catalog-api/internal/store"
	apperrors "github.com/quickcart/catalog-api/pkg/errors"
)

// ProductHandler serves catalog CRUD and search
type ProductHandler struct {
	products store.ProductStore
	logger   *logrus.Logger
}

func NewProductHandler(products store.ProductStore, logger *logrus.Logger) *ProductHandler {
	return &ProductHandler{
		products: products,
		logger:   logger,
	}
}

// Create persists a new product. Any authenticated user may create one;
// there is no ownership relation between users and products.
func (h *ProductHandler) Create(c *fiber.Ctx) error {
	req, err := parseProduct(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	now := time.Now().UTC()
	product := &models.Product{
		ProductID:   uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		Price:       float64(*req.Price),
		Category:    req.Category,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	start := time.Now()
	err = h.products.CreateProduct(c.Context(), product)
	metrics.RecordStoreOperation("create", opStatus(err), time.Since(start))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	h.logger.WithFields(logrus.Fields{
		"product_id": product.ProductID,
		"user_id":    getRequestUserID(c),
	}).Info("Product created")

	return c.Status(fiber.StatusCreated).JSON(product)
}

// List returns one page of the catalog in storage order
func (h *ProductHandler) List(c *fiber.Ctx) error {
	page := parsePageRequest(c)

	start := time.Now()
	result, err := h.products.ListProducts(c.Context(), page)
	metrics.RecordStoreOperation("list", opStatus(err), time.Since(start))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(result)
}

// Get fetches a product by its opaque identifier. A malformed identifier
// simply matches nothing and reports not found.
func (h *ProductHandler) Get(c *fiber.Ctx) error {
	start := time.Now()
	product, err := h.products.GetProduct(c.Context(), c.Params("id"))
	metrics.RecordStoreOperation("get", opStatus(err), time.Since(start))
	if err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			return respondError(c, h.logger, apperrors.New(apperrors.CodeNotFound, "Product not found", nil))
		}
		return respondError(c, h.logger, err)
	}

	return c.JSON(product)
}

// Update fully replaces the four mutable fields
func (h *ProductHandler) Update(c *fiber.Ctx) error {
	req, err := parseProduct(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	product := &models.Product{
		ProductID:   c.Params("id"),
		Name:        req.Name,
		Description: req.Description,
		Price:       float64(*req.Price),
		Category:    req.Category,
		UpdatedAt:   time.Now().UTC(),
	}

	start := time.Now()
	err = h.products.UpdateProduct(c.Context(), product)
	metrics.RecordStoreOperation("update", opStatus(err), time.Since(start))
	if err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			return respondError(c, h.logger, apperrors.New(apperrors.CodeNotFound, "Product not found", nil))
		}
		return respondError(c, h.logger, err)
	}

	return c.JSON(product)
}

// Delete removes a product and confirms, without echoing the record
func (h *ProductHandler) Delete(c *fiber.Ctx) error {
	start := time.Now()
	err := h.products.DeleteProduct(c.Context(), c.Params("id"))
	metrics.RecordStoreOperation("delete", opStatus(err), time.Since(start))
	if err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			return respondError(c, h.logger, apperrors.New(apperrors.CodeNotFound, "Product not found", nil))
		}
		return respondError(c, h.logger, err)
	}

	h.logger.WithFields(logrus.Fields{
		"product_id": c.Params("id"),
		"user_id":    getRequestUserID(c),
	}).Info("Product deleted")

	return c.JSON(models.DeleteResponse{Message: "Product deleted successfully"})
}

// Search matches a case-insensitive substring against name, description,
// or category, paginated like List.
func (h *ProductHandler) Search(c *fiber.Ctx) error {
	query := c.Query("query")
	if strings.TrimSpace(query) == "" {
		return respondError(c, h.logger, apperrors.New(apperrors.CodeValidation, "Query parameter is required", nil))
	}

	page := parsePageRequest(c)

	start := time.Now()
	result, err := h.products.SearchProducts(c.Context(), query, page)
	metrics.RecordStoreOperation("search", opStatus(err), time.Since(start))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(result)
}

func parseProduct(c *fiber.Ctx) (*models.ProductRequest, error) {
	var req models.ProductRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, apperrors.New(apperrors.CodeValidation, "Invalid request body", err)
	}

	if problems := req.Validate(); len(problems) > 0 {
		return nil, apperrors.New(apperrors.CodeValidation, strings.Join(problems, "; "), nil)
	}

	return &req, nil
}

// parsePageRequest reads page/limit query parameters permissively:
// missing, non-numeric, or non-positive values fall back to the defaults
// instead of erroring.
func parsePageRequest(c *fiber.Ctx) store.PageRequest {
	return store.PageRequest{
		Page:  positiveIntOr(c.Query("page"), store.DefaultPage),
		Limit: positiveIntOr(c.Query("limit"), store.DefaultLimit),
	}
}

func positiveIntOr(raw string, fallback int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func opStatus(err error) string {
	if err != nil && !errors.Is(err, store.ErrProductNotFound) {
		return "failure"
	}
	return "success"
}

func getRequestUserID(c *fiber.Ctx) string {
	if userID, ok := c.Locals("user_id").(string); ok {
		return userID
	}
	return ""
}
