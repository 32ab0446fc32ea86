package routes

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/quickcart/catalog-api/internal/auth"
	"github.com/quickcart/catalog-api/internal/models"
	"github.com/quickcart/catalog-api/internal/store"
	apperrors "github.com/quickcart/catalog-api/pkg/errors"
)

// AuthHandler serves registration and login
type AuthHandler struct {
	users  store.UserStore
	issuer *auth.Issuer
	logger *logrus.Logger
}

func NewAuthHandler(users store.UserStore, issuer *auth.Issuer, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		users:  users,
		issuer: issuer,
		logger: logger,
	}
}

// Register creates an account and returns a fresh token.
//
// The uniqueness check and the insert are two separate store calls, so two
// concurrent registrations of the same username can both pass the check.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	req, err := parseCredentials(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	_, err = h.users.GetUserByUsername(c.Context(), req.Username)
	if err == nil {
		return respondError(c, h.logger, apperrors.New(apperrors.CodeConflict, "User already exists", nil))
	}
	if !errors.Is(err, store.ErrUserNotFound) {
		return respondError(c, h.logger, err)
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	now := time.Now().UTC()
	user := &models.User{
		UserID:       uuid.New().String(),
		Username:     req.Username,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.users.CreateUser(c.Context(), user); err != nil {
		if errors.Is(err, store.ErrUserExists) {
			return respondError(c, h.logger, apperrors.New(apperrors.CodeConflict, "User already exists", nil))
		}
		return respondError(c, h.logger, err)
	}

	token, expiresIn, err := h.issuer.Issue(user.UserID, user.Username)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	h.logger.WithFields(logrus.Fields{
		"user_id":  user.UserID,
		"username": user.Username,
	}).Info("User registered")

	return c.Status(fiber.StatusCreated).JSON(models.AuthResponse{
		Token:     token,
		User:      *user,
		ExpiresIn: expiresIn,
	})
}

// Login verifies credentials and returns a fresh token. An unknown username
// and a wrong password produce byte-identical failures, so responses cannot
// be used to enumerate accounts.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	req, err := parseCredentials(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	invalidCredentials := apperrors.New(apperrors.CodeInvalidCredentials, "Invalid credentials", nil)

	user, err := h.users.GetUserByUsername(c.Context(), req.Username)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return respondError(c, h.logger, invalidCredentials)
		}
		return respondError(c, h.logger, err)
	}

	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		return respondError(c, h.logger, invalidCredentials)
	}

	token, expiresIn, err := h.issuer.Issue(user.UserID, user.Username)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	h.logger.WithFields(logrus.Fields{
		"user_id":  user.UserID,
		"username": user.Username,
	}).Info("User logged in")

	return c.JSON(models.AuthResponse{
		Token:     token,
		User:      *user,
		ExpiresIn: expiresIn,
	})
}

func parseCredentials(c *fiber.Ctx) (*models.CredentialsRequest, error) {
	var req models.CredentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, apperrors.New(apperrors.CodeValidation, "Invalid request body", err)
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "username and password are required", nil)
	}

	return &req, nil
}
