package schema

import (
	"context"
	"fmt"
	"log"

	"formflow-backend/internal/store"
)

// LoadActive reads every active structure from the database and populates
// the registry. Structures with configuration errors are skipped with a
// warning so one broken definition never takes down the rest.
func LoadActive(ctx context.Context, db *store.Store, reg *Registry) error {
	rows, err := db.DB.QueryContext(ctx,
		"SELECT id, type, definition FROM _structures WHERE active = "+db.Dialect.TrueLiteral()+" ORDER BY type")
	if err != nil {
		return fmt.Errorf("load structures: %w", err)
	}
	defer rows.Close()

	var structures []*Structure
	for rows.Next() {
		var id, typeTag string
		var defJSON []byte
		if err := rows.Scan(&id, &typeTag, &defJSON); err != nil {
			return fmt.Errorf("scan structure row: %w", err)
		}

		s, issues, err := ParseDocument(defJSON)
		if err != nil {
			log.Printf("WARN: skipping structure %s (%s): %v", id, typeTag, err)
			for _, issue := range issues {
				log.Printf("WARN:   %s %s: %s", issue.Severity, issue.Path, issue.Message)
			}
			continue
		}
		for _, issue := range issues {
			log.Printf("WARN: structure %s (%s) %s: %s", id, typeTag, issue.Path, issue.Message)
		}
		structures = append(structures, s)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("structure rows: %w", err)
	}

	reg.Load(structures)
	log.Printf("Loaded %d questionnaire structures into registry", len(structures))
	return nil
}

// Reload is an alias for LoadActive, called after admin mutations.
func Reload(ctx context.Context, db *store.Store, reg *Registry) error {
	return LoadActive(ctx, db, reg)
}
