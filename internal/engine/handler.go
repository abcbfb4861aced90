package engine

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"formflow-backend/internal/schema"
	"formflow-backend/internal/store"
)

// Handler serves the questionnaire runtime: structure lookup, per-interaction
// evaluation, response persistence and final submission.
type Handler struct {
	store      *store.Store
	registry   *schema.Registry
	predicates *PredicateRegistry
}

func NewHandler(s *store.Store, reg *schema.Registry, preds *PredicateRegistry) *Handler {
	return &Handler{store: s, registry: reg, predicates: preds}
}

// Get handles GET /api/questionnaires/:type. Returns the active structure,
// the user's saved answers and a fresh evaluation snapshot.
func (h *Handler) Get(c *fiber.Ctx) error {
	structure, err := h.resolveStructure(c)
	if err != nil {
		return err
	}

	user := getUser(c)
	rs, err := loadResponseSet(c.Context(), h.store, user.ID, structure.ID)
	if err != nil {
		return fmt.Errorf("get %s: %w", structure.Type, err)
	}

	snap := Pass(structure, rs.Answers, h.predicates)
	return c.JSON(fiber.Map{"data": fiber.Map{
		"structure": structure,
		"submitted": rs.Submitted,
		"snapshot":  snap,
	}})
}

// Evaluate handles POST /api/questionnaires/:type/evaluate. Runs one
// evaluation pass over the submitted answers without persisting anything,
// so clients can re-evaluate on every keystroke.
func (h *Handler) Evaluate(c *fiber.Ctx) error {
	structure, err := h.resolveStructure(c)
	if err != nil {
		return err
	}

	answers, err := parseAnswers(c)
	if err != nil {
		return err
	}

	snap := Pass(structure, answers, h.predicates)
	return c.JSON(fiber.Map{"data": snap})
}

// SaveResponses handles PUT /api/questionnaires/:type/responses. Replaces
// the user's saved answers with the submitted map, applies setValue writes,
// persists the result and returns the snapshot.
func (h *Handler) SaveResponses(c *fiber.Ctx) error {
	structure, err := h.resolveStructure(c)
	if err != nil {
		return err
	}

	answers, err := parseAnswers(c)
	if err != nil {
		return err
	}

	user := getUser(c)
	rs, err := loadResponseSet(c.Context(), h.store, user.ID, structure.ID)
	if err != nil {
		return fmt.Errorf("save %s: %w", structure.Type, err)
	}
	if rs.Submitted {
		return respondError(c, ConflictError("Questionnaire has already been submitted"))
	}

	snap := Pass(structure, answers, h.predicates)

	// Persist post-setValue answers so derived writes survive the round trip.
	rs.Answers = snap.Responses
	if err := saveResponseSet(c.Context(), h.store, rs); err != nil {
		return fmt.Errorf("save %s: %w", structure.Type, err)
	}

	return c.JSON(fiber.Map{"data": snap})
}

// Submit handles POST /api/questionnaires/:type/submit. Runs a full pass
// over the saved answers; any validation failure or incomplete visible
// section rejects the submission with field-scoped errors.
func (h *Handler) Submit(c *fiber.Ctx) error {
	structure, err := h.resolveStructure(c)
	if err != nil {
		return err
	}

	user := getUser(c)
	rs, err := loadResponseSet(c.Context(), h.store, user.ID, structure.ID)
	if err != nil {
		return fmt.Errorf("submit %s: %w", structure.Type, err)
	}
	if rs.Submitted {
		return respondError(c, ConflictError("Questionnaire has already been submitted"))
	}

	snap := Pass(structure, rs.Answers, h.predicates)
	if len(snap.Errors) > 0 {
		return respondError(c, ValidationError(snap.Errors))
	}
	if len(snap.Progress.CompletedSections) < snap.Progress.TotalSections {
		return respondError(c, ValidationError([]ErrorDetail{{
			Rule:    "incomplete",
			Message: "All sections must be completed before submitting",
		}}))
	}

	if err := markSubmitted(c.Context(), h.store, user.ID, structure.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return respondError(c, NotFoundError("response set", structure.ID))
		}
		return fmt.Errorf("submit %s: %w", structure.Type, err)
	}

	return c.JSON(fiber.Map{"data": fiber.Map{
		"submitted": true,
		"progress":  snap.Progress,
	}})
}

func (h *Handler) resolveStructure(c *fiber.Ctx) (*schema.Structure, error) {
	typeTag := c.Params("type")
	structure := h.registry.Get(typeTag)
	if structure == nil {
		return nil, respondError(c, UnknownQuestionnaireError(typeTag))
	}
	return structure, nil
}

func parseAnswers(c *fiber.Ctx) (map[string]any, error) {
	answers, err := decodeAnswers(c.Body())
	if err != nil {
		return nil, respondError(c, NewAppError("INVALID_PAYLOAD", 400, err.Error()))
	}
	return answers, nil
}

// decodeAnswers requires the wrapped form {"answers": {...}}. The envelope
// keeps fieldNames out of the top level, so a questionnaire may own a field
// literally named "answers" without ambiguity.
func decodeAnswers(body []byte) (map[string]any, error) {
	var wrapped struct {
		Answers map[string]any `json:"answers"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil || wrapped.Answers == nil {
		return nil, errors.New(`Request body must wrap answers as {"answers": {...}}`)
	}
	return wrapped.Answers, nil
}

func getUser(c *fiber.Ctx) *schema.UserContext {
	user, _ := c.Locals("user").(*schema.UserContext)
	if user == nil {
		return &schema.UserContext{}
	}
	return user
}

func respondError(c *fiber.Ctx, appErr *AppError) error {
	return c.Status(appErr.Status).JSON(ErrorResponse{Error: appErr})
}
