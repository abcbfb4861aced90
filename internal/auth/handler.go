package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"formflow-backend/internal/engine"
	"formflow-backend/internal/schema"
	"formflow-backend/internal/store"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	store  *store.Store
	issuer *Issuer
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(s *store.Store, issuer *Issuer) *AuthHandler {
	return &AuthHandler{store: s, issuer: issuer}
}

// RegisterAuthRoutes mounts the auth endpoints. These sit before the auth
// middleware; no token is required.
func RegisterAuthRoutes(app *fiber.App, h *AuthHandler) {
	grp := app.Group("/api/auth")
	grp.Post("/register", h.Register)
	grp.Post("/login", h.Login)
	grp.Post("/refresh", h.Refresh)
}

// Register handles POST /api/auth/register. New accounts get the litigant
// role; admin accounts are seeded or promoted out of band.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var body struct {
		Email       string `json:"email"`
		Password    string `json:"password"`
		DisplayName string `json:"display_name"`
	}
	if err := c.BodyParser(&body); err != nil {
		return engine.NewAppError("INVALID_PAYLOAD", 400, "Invalid request body")
	}
	if body.Email == "" || body.Password == "" {
		return engine.NewAppError("INVALID_PAYLOAD", 400, "Email and password are required")
	}
	if len(body.Password) < 8 {
		return engine.NewAppError("INVALID_PAYLOAD", 400, "Password must be at least 8 characters")
	}

	hash, err := HashPassword(body.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	ctx := c.Context()
	d := h.store.Dialect
	userID := uuid.New().String()
	sqlStr := fmt.Sprintf(
		"INSERT INTO _users (id, email, password_hash, display_name, roles) VALUES (%s, %s, %s, %s, %s)",
		d.Placeholder(1), d.Placeholder(2), d.Placeholder(3), d.Placeholder(4), d.Placeholder(5))
	roles := []string{schema.RoleLitigant}
	if _, err := store.Exec(ctx, h.store.DB, sqlStr,
		userID, body.Email, hash, body.DisplayName, d.ArrayParam(roles)); err != nil {
		if errors.Is(d.MapError(err), store.ErrUniqueViolation) {
			return engine.ConflictError("An account with this email already exists")
		}
		return fmt.Errorf("create user: %w", err)
	}

	pair, err := h.generateTokenPair(ctx, userID, roles)
	if err != nil {
		return err
	}
	return c.Status(201).JSON(fiber.Map{"data": pair})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&body); err != nil {
		return engine.NewAppError("INVALID_PAYLOAD", 400, "Invalid request body")
	}
	if body.Email == "" || body.Password == "" {
		return engine.UnauthorizedError("Email and password are required")
	}

	ctx := c.Context()
	d := h.store.Dialect
	user, err := store.QueryRow(ctx, h.store.DB,
		fmt.Sprintf("SELECT id, password_hash, roles, active FROM _users WHERE email = %s", d.Placeholder(1)),
		body.Email)
	if err != nil {
		return engine.UnauthorizedError("Invalid email or password")
	}

	if !store.AsBool(user["active"]) {
		return engine.UnauthorizedError("Account is disabled")
	}

	passwordHash, _ := user["password_hash"].(string)
	if !PasswordMatches(body.Password, passwordHash) {
		return engine.UnauthorizedError("Invalid email or password")
	}

	userID := fmt.Sprintf("%v", user["id"])
	roles, err := d.ScanArray(user["roles"])
	if err != nil {
		return fmt.Errorf("scan roles: %w", err)
	}

	pair, err := h.generateTokenPair(ctx, userID, roles)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": pair})
}

// Refresh handles POST /api/auth/refresh.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.BodyParser(&body); err != nil {
		return engine.NewAppError("INVALID_PAYLOAD", 400, "Invalid request body")
	}
	if body.RefreshToken == "" {
		return engine.UnauthorizedError("Refresh token is required")
	}

	ctx := c.Context()
	d := h.store.Dialect
	row, err := store.QueryRow(ctx, h.store.DB, fmt.Sprintf(
		`SELECT rt.user_id, rt.expires_at, u.roles, u.active
		 FROM _refresh_tokens rt
		 JOIN _users u ON u.id = rt.user_id
		 WHERE rt.token = %s`, d.Placeholder(1)), body.RefreshToken)
	if err != nil {
		return engine.UnauthorizedError("Invalid refresh token")
	}

	expiresAt, _ := row["expires_at"].(time.Time)
	if time.Now().After(expiresAt) {
		_, _ = store.Exec(ctx, h.store.DB,
			fmt.Sprintf("DELETE FROM _refresh_tokens WHERE token = %s", d.Placeholder(1)),
			body.RefreshToken)
		return engine.UnauthorizedError("Refresh token expired")
	}

	if !store.AsBool(row["active"]) {
		return engine.UnauthorizedError("Account is disabled")
	}

	userID := fmt.Sprintf("%v", row["user_id"])
	roles, err := d.ScanArray(row["roles"])
	if err != nil {
		return fmt.Errorf("scan roles: %w", err)
	}

	// Rotate: delete the used token before issuing a new pair
	_, _ = store.Exec(ctx, h.store.DB,
		fmt.Sprintf("DELETE FROM _refresh_tokens WHERE token = %s", d.Placeholder(1)),
		body.RefreshToken)

	pair, err := h.generateTokenPair(ctx, userID, roles)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": pair})
}

// Me handles GET /api/auth/me (behind auth middleware).
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user := GetUser(c)
	if user == nil {
		return engine.UnauthorizedError("Missing auth token")
	}

	d := h.store.Dialect
	row, err := store.QueryRow(c.Context(), h.store.DB,
		fmt.Sprintf("SELECT id, email, display_name, roles, created_at FROM _users WHERE id = %s", d.Placeholder(1)),
		user.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return engine.NotFoundError("user", user.ID)
		}
		return fmt.Errorf("load user: %w", err)
	}

	roles, _ := d.ScanArray(row["roles"])
	row["roles"] = roles
	delete(row, "password_hash")
	return c.JSON(fiber.Map{"data": row})
}

func (h *AuthHandler) generateTokenPair(ctx context.Context, userID string, roles []string) (*TokenPair, error) {
	access, err := h.issuer.AccessToken(userID, roles)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	refresh := NewRefreshToken()
	d := h.store.Dialect
	sqlStr := fmt.Sprintf(
		"INSERT INTO _refresh_tokens (id, user_id, token, expires_at) VALUES (%s, %s, %s, %s)",
		d.Placeholder(1), d.Placeholder(2), d.Placeholder(3), d.Placeholder(4))
	if _, err := store.Exec(ctx, h.store.DB, sqlStr,
		uuid.New().String(), userID, refresh, h.issuer.RefreshExpiry()); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
