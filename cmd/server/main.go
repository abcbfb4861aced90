package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"formflow-backend/internal/admin"
	"formflow-backend/internal/auth"
	"formflow-backend/internal/config"
	"formflow-backend/internal/engine"
	"formflow-backend/internal/schema"
	"formflow-backend/internal/store"
)

func main() {
	ctx := context.Background()

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Printf("Config loaded (port: %d, db driver: %s)", cfg.Server.Port, cfg.Database.Driver)

	// 2. Connect to database
	db, err := store.New(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	// 3. Bootstrap system tables
	if err := db.Bootstrap(ctx); err != nil {
		log.Fatalf("Failed to bootstrap system tables: %v", err)
	}
	log.Println("System tables ready")

	// 4. Load active questionnaire structures
	registry := schema.NewRegistry()
	if err := schema.LoadActive(ctx, db, registry); err != nil {
		log.Printf("WARN: Failed to load structures: %v", err)
	}

	// 5. Custom validation predicates referenced by structure definitions
	predicates := engine.NewPredicateRegistry()
	registerPredicates(predicates)

	// 6. Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
	})
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))

	// 7. Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// 8. Auth routes (before middleware, no auth required)
	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	authHandler := auth.NewAuthHandler(db, issuer)
	auth.RegisterAuthRoutes(app, authHandler)

	authMW := auth.Middleware(issuer)
	adminMW := auth.RequireRole(schema.RoleAdmin)

	app.Get("/api/auth/me", authMW, authHandler.Me)

	// 9. Admin structure management (auth + admin required)
	adminHandler := admin.NewHandler(db, registry)
	admin.RegisterAdminRoutes(app, adminHandler, authMW, adminMW)

	// 10. Questionnaire runtime (auth required)
	engineHandler := engine.NewHandler(db, registry, predicates)
	engine.RegisterQuestionnaireRoutes(app, engineHandler, authMW)

	// 11. Start server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Starting server on %s", addr)
	log.Fatal(app.Listen(addr))
}

// registerPredicates installs the named predicates that structure documents
// may reference from custom validation rules.
func registerPredicates(reg *engine.PredicateRegistry) {
	reg.Register("past_date", func(value any, _ map[string]any) (bool, error) {
		s, ok := value.(string)
		if !ok {
			return false, nil
		}
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return false, nil
		}
		return t.Before(time.Now()), nil
	})

	reg.Register("adult_birthdate", func(value any, _ map[string]any) (bool, error) {
		s, ok := value.(string)
		if !ok {
			return false, nil
		}
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return false, nil
		}
		return !t.After(time.Now().AddDate(-18, 0, 0)), nil
	})

	// Marriage date must not be after the separation date when both are set.
	reg.Register("before_separation", func(value any, answers map[string]any) (bool, error) {
		marriage, ok := value.(string)
		if !ok {
			return false, nil
		}
		separation, ok := answers["separationDate"].(string)
		if !ok || separation == "" {
			return true, nil
		}
		mt, err := time.Parse("2006-01-02", marriage)
		if err != nil {
			return false, nil
		}
		st, err := time.Parse("2006-01-02", separation)
		if err != nil {
			return true, nil
		}
		return !mt.After(st), nil
	})
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}

	var appErr *engine.AppError
	if errors.As(err, &appErr) {
		return c.Status(appErr.Status).JSON(engine.ErrorResponse{Error: appErr})
	}

	log.Printf("ERROR: %v", err)
	return c.Status(code).JSON(engine.ErrorResponse{
		Error: &engine.AppError{
			Code:    "INTERNAL_ERROR",
			Message: "Internal server error",
		},
	})
}
