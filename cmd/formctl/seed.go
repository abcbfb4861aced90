package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"formflow-backend/internal/config"
	"formflow-backend/internal/store"
)

func newSeedCmd() *cobra.Command {
	var activate bool

	cmd := &cobra.Command{
		Use:   "seed <file...>",
		Short: "Validate and load definition files into the database",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			ctx := context.Background()
			db, err := store.New(ctx, cfg.Database)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer db.Close()

			if err := db.Bootstrap(ctx); err != nil {
				return fmt.Errorf("bootstrap: %w", err)
			}

			for _, path := range args {
				if err := seedFile(ctx, db, path, activate); err != nil {
					color.Red("FAIL %s: %v", path, err)
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&activate, "activate", false, "activate each structure after seeding")
	return cmd
}

func seedFile(ctx context.Context, db *store.Store, path string, activate bool) error {
	structure, _, err := loadDefinition(path)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(structure)
	if err != nil {
		return fmt.Errorf("encode definition: %w", err)
	}

	version := structure.Version
	if version == 0 {
		version = 1
	}

	d := db.Dialect
	sqlStr := fmt.Sprintf(`INSERT INTO _structures (id, type, name, version, definition)
		VALUES (%s, %s, %s, %s, %s)
		ON CONFLICT (id)
		DO UPDATE SET type = %s, name = %s, version = %s, definition = %s, updated_at = %s`,
		d.Placeholder(1), d.Placeholder(2), d.Placeholder(3), d.Placeholder(4), d.Placeholder(5),
		d.Placeholder(6), d.Placeholder(7), d.Placeholder(8), d.Placeholder(9), d.NowExpr())
	if _, err := store.Exec(ctx, db.DB, sqlStr,
		structure.ID, structure.Type, structure.Name, version, string(raw),
		structure.Type, structure.Name, version, string(raw)); err != nil {
		return fmt.Errorf("upsert structure: %w", err)
	}

	if activate {
		tx, err := db.BeginTx(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck

		deactivate := fmt.Sprintf("UPDATE _structures SET active = %s WHERE type = %s",
			falseLiteral(d), d.Placeholder(1))
		if _, err := store.Exec(ctx, tx, deactivate, structure.Type); err != nil {
			return fmt.Errorf("deactivate: %w", err)
		}
		enable := fmt.Sprintf("UPDATE _structures SET active = %s WHERE id = %s",
			d.TrueLiteral(), d.Placeholder(1))
		if _, err := store.Exec(ctx, tx, enable, structure.ID); err != nil {
			return fmt.Errorf("activate: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
	}

	color.Green("OK   %s seeded as %s (%s)", path, structure.ID, structure.Type)
	return nil
}

func falseLiteral(d store.Dialect) string {
	if d.TrueLiteral() == "1" {
		return "0"
	}
	return "FALSE"
}
