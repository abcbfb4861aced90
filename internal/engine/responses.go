package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"formflow-backend/internal/store"
)

// ResponseSet is one user's saved answers for one questionnaire structure.
type ResponseSet struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	StructureID string         `json:"structure_id"`
	Answers     map[string]any `json:"answers"`
	Submitted   bool           `json:"submitted"`
}

// loadResponseSet fetches a user's response set for a structure. A user who
// has not started yet gets an empty, unsaved set.
func loadResponseSet(ctx context.Context, db *store.Store, userID, structureID string) (*ResponseSet, error) {
	d := db.Dialect
	row, err := store.QueryRow(ctx, db.DB, fmt.Sprintf(
		"SELECT id, answers, submitted FROM _response_sets WHERE user_id = %s AND structure_id = %s",
		d.Placeholder(1), d.Placeholder(2)), userID, structureID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &ResponseSet{
				UserID:      userID,
				StructureID: structureID,
				Answers:     map[string]any{},
			}, nil
		}
		return nil, fmt.Errorf("load response set: %w", err)
	}

	rs := &ResponseSet{
		ID:          fmt.Sprintf("%v", row["id"]),
		UserID:      userID,
		StructureID: structureID,
		Answers:     map[string]any{},
		Submitted:   store.AsBool(row["submitted"]),
	}
	if raw := asBytes(row["answers"]); raw != nil {
		if err := json.Unmarshal(raw, &rs.Answers); err != nil {
			return nil, fmt.Errorf("decode answers: %w", err)
		}
	}
	return rs, nil
}

// saveResponseSet upserts a user's answers for a structure.
func saveResponseSet(ctx context.Context, db *store.Store, rs *ResponseSet) error {
	encoded, err := json.Marshal(rs.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	if rs.ID == "" {
		rs.ID = uuid.New().String()
	}

	d := db.Dialect
	sqlStr := fmt.Sprintf(`INSERT INTO _response_sets (id, user_id, structure_id, answers)
		VALUES (%s, %s, %s, %s)
		ON CONFLICT (user_id, structure_id)
		DO UPDATE SET answers = %s, updated_at = %s`,
		d.Placeholder(1), d.Placeholder(2), d.Placeholder(3), d.Placeholder(4),
		d.Placeholder(5), d.NowExpr())
	if _, err := store.Exec(ctx, db.DB, sqlStr,
		rs.ID, rs.UserID, rs.StructureID, string(encoded), string(encoded)); err != nil {
		return fmt.Errorf("save response set: %w", err)
	}
	return nil
}

// markSubmitted flags a response set as submitted.
func markSubmitted(ctx context.Context, db *store.Store, userID, structureID string) error {
	d := db.Dialect
	sqlStr := fmt.Sprintf(
		"UPDATE _response_sets SET submitted = %s, submitted_at = %s, updated_at = %s WHERE user_id = %s AND structure_id = %s",
		d.TrueLiteral(), d.NowExpr(), d.NowExpr(), d.Placeholder(1), d.Placeholder(2))
	affected, err := store.Exec(ctx, db.DB, sqlStr, userID, structureID)
	if err != nil {
		return fmt.Errorf("mark submitted: %w", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func asBytes(v any) []byte {
	switch raw := v.(type) {
	case []byte:
		return raw
	case string:
		return []byte(raw)
	}
	return nil
}
