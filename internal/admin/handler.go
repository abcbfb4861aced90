package admin

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"formflow-backend/internal/engine"
	"formflow-backend/internal/schema"
	"formflow-backend/internal/store"
)

// Handler manages questionnaire structure definitions. Every mutation
// validates the document before it is stored and reloads the registry after
// commit, so evaluation only ever sees well-formed structures.
type Handler struct {
	store    *store.Store
	registry *schema.Registry
}

func NewHandler(s *store.Store, reg *schema.Registry) *Handler {
	return &Handler{store: s, registry: reg}
}

// RegisterAdminRoutes mounts structure management endpoints behind the given
// middlewares (auth + admin role).
func RegisterAdminRoutes(app *fiber.App, h *Handler, middlewares ...fiber.Handler) {
	grp := app.Group("/api/admin/structures")
	for _, mw := range middlewares {
		grp.Use(mw)
	}

	grp.Get("/", h.List)
	grp.Get("/:id", h.GetByID)
	grp.Post("/", h.Create)
	grp.Put("/:id", h.Update)
	grp.Post("/:id/activate", h.Activate)
	grp.Delete("/:id", h.Delete)
}

// List handles GET /api/admin/structures.
func (h *Handler) List(c *fiber.Ctx) error {
	rows, err := store.QueryRows(c.Context(), h.store.DB,
		"SELECT id, type, name, version, active, created_at, updated_at FROM _structures ORDER BY type, version")
	if err != nil {
		return fmt.Errorf("list structures: %w", err)
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	for _, row := range rows {
		row["active"] = store.AsBool(row["active"])
	}
	return c.JSON(fiber.Map{"data": rows})
}

// GetByID handles GET /api/admin/structures/:id.
func (h *Handler) GetByID(c *fiber.Ctx) error {
	id := c.Params("id")
	d := h.store.Dialect
	row, err := store.QueryRow(c.Context(), h.store.DB,
		fmt.Sprintf("SELECT id, type, name, version, definition, active FROM _structures WHERE id = %s", d.Placeholder(1)), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return respondError(c, engine.NotFoundError("structure", id))
		}
		return fmt.Errorf("get structure %s: %w", id, err)
	}

	var def any
	if raw, ok := row["definition"].(string); ok {
		_ = json.Unmarshal([]byte(raw), &def)
	} else if raw, ok := row["definition"].([]byte); ok {
		_ = json.Unmarshal(raw, &def)
	}
	row["definition"] = def
	row["active"] = store.AsBool(row["active"])
	return c.JSON(fiber.Map{"data": row})
}

// Create handles POST /api/admin/structures. The body is the structure
// document itself; it is stored inactive and must be activated explicitly.
func (h *Handler) Create(c *fiber.Ctx) error {
	structure, raw, err := h.parseStructureBody(c)
	if err != nil {
		return err
	}

	d := h.store.Dialect
	sqlStr := fmt.Sprintf(
		"INSERT INTO _structures (id, type, name, version, definition) VALUES (%s, %s, %s, %s, %s)",
		d.Placeholder(1), d.Placeholder(2), d.Placeholder(3), d.Placeholder(4), d.Placeholder(5))
	if _, err := store.Exec(c.Context(), h.store.DB, sqlStr,
		structure.ID, structure.Type, structure.Name, versionOrOne(structure), string(raw)); err != nil {
		if errors.Is(d.MapError(err), store.ErrUniqueViolation) {
			return respondError(c, engine.ConflictError("A structure with this id already exists"))
		}
		return fmt.Errorf("create structure: %w", err)
	}

	return c.Status(201).JSON(fiber.Map{"data": structure})
}

// Update handles PUT /api/admin/structures/:id. The stored row keeps the
// path id; the document's own id must match.
func (h *Handler) Update(c *fiber.Ctx) error {
	id := c.Params("id")
	structure, raw, err := h.parseStructureBody(c)
	if err != nil {
		return err
	}
	if structure.ID != id {
		return respondError(c, engine.NewAppError("ID_MISMATCH", 400, "Document id does not match path id"))
	}

	d := h.store.Dialect
	sqlStr := fmt.Sprintf(
		"UPDATE _structures SET type = %s, name = %s, version = %s, definition = %s, updated_at = %s WHERE id = %s",
		d.Placeholder(1), d.Placeholder(2), d.Placeholder(3), d.Placeholder(4), d.NowExpr(), d.Placeholder(5))
	affected, err := store.Exec(c.Context(), h.store.DB, sqlStr,
		structure.Type, structure.Name, versionOrOne(structure), string(raw), id)
	if err != nil {
		return fmt.Errorf("update structure %s: %w", id, err)
	}
	if affected == 0 {
		return respondError(c, engine.NotFoundError("structure", id))
	}

	if err := schema.Reload(c.Context(), h.store, h.registry); err != nil {
		return fmt.Errorf("reload registry: %w", err)
	}
	return c.JSON(fiber.Map{"data": structure})
}

// Activate handles POST /api/admin/structures/:id/activate. Swaps the active
// flag for the structure's type in one transaction, preserving the one
// active structure per type invariant.
func (h *Handler) Activate(c *fiber.Ctx) error {
	id := c.Params("id")
	ctx := c.Context()
	d := h.store.Dialect

	row, err := store.QueryRow(ctx, h.store.DB,
		fmt.Sprintf("SELECT type FROM _structures WHERE id = %s", d.Placeholder(1)), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return respondError(c, engine.NotFoundError("structure", id))
		}
		return fmt.Errorf("activate structure %s: %w", id, err)
	}
	typeTag := fmt.Sprintf("%v", row["type"])

	tx, err := h.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := store.Exec(ctx, tx,
		fmt.Sprintf("UPDATE _structures SET active = %s, updated_at = %s WHERE type = %s",
			falseLiteral(d), d.NowExpr(), d.Placeholder(1)), typeTag); err != nil {
		return fmt.Errorf("deactivate %s structures: %w", typeTag, err)
	}
	if _, err := store.Exec(ctx, tx,
		fmt.Sprintf("UPDATE _structures SET active = %s, updated_at = %s WHERE id = %s",
			d.TrueLiteral(), d.NowExpr(), d.Placeholder(1)), id); err != nil {
		return fmt.Errorf("activate structure %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	if err := schema.Reload(ctx, h.store, h.registry); err != nil {
		return fmt.Errorf("reload registry: %w", err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"id": id, "type": typeTag, "active": true}})
}

// Delete handles DELETE /api/admin/structures/:id. Active structures cannot
// be deleted; deactivate by activating a replacement first.
func (h *Handler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	d := h.store.Dialect

	row, err := store.QueryRow(c.Context(), h.store.DB,
		fmt.Sprintf("SELECT active FROM _structures WHERE id = %s", d.Placeholder(1)), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return respondError(c, engine.NotFoundError("structure", id))
		}
		return fmt.Errorf("get structure %s: %w", id, err)
	}
	if store.AsBool(row["active"]) {
		return respondError(c, engine.ConflictError("Cannot delete the active structure"))
	}

	if _, err := store.Exec(c.Context(), h.store.DB,
		fmt.Sprintf("DELETE FROM _structures WHERE id = %s", d.Placeholder(1)), id); err != nil {
		return fmt.Errorf("delete structure %s: %w", id, err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"id": id}})
}

// parseStructureBody validates the request body as a structure document.
// Schema violations and configuration errors come back as 422 with
// field-scoped details.
func (h *Handler) parseStructureBody(c *fiber.Ctx) (*schema.Structure, []byte, error) {
	raw := c.Body()
	structure, issues, err := schema.ParseDocument(raw)
	if err != nil {
		details := make([]engine.ErrorDetail, 0, len(issues))
		for _, issue := range issues {
			if issue.Severity == schema.SeverityError {
				details = append(details, engine.ErrorDetail{
					Field:   issue.Path,
					Rule:    "structure",
					Message: issue.Message,
				})
			}
		}
		if len(details) == 0 {
			details = append(details, engine.ErrorDetail{Rule: "structure", Message: err.Error()})
		}
		return nil, nil, respondError(c, engine.ConfigurationError(details))
	}
	return structure, raw, nil
}

func versionOrOne(s *schema.Structure) int {
	if s.Version > 0 {
		return s.Version
	}
	return 1
}

func falseLiteral(d store.Dialect) string {
	if d.TrueLiteral() == "1" {
		return "0"
	}
	return "FALSE"
}

func respondError(c *fiber.Ctx, appErr *engine.AppError) error {
	return c.Status(appErr.Status).JSON(engine.ErrorResponse{Error: appErr})
}
