package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"formflow-backend/internal/schema"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file...>",
		Short: "Validate questionnaire definition files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				if err := validateFile(path); err != nil {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed validation", failed, len(args))
			}
			return nil
		},
	}
}

// validateFile checks one definition file and prints a per-file report.
func validateFile(path string) error {
	structure, issues, err := loadDefinition(path)

	for _, issue := range issues {
		if issue.Severity == schema.SeverityError {
			color.Red("  %s %s: %s", issue.Severity, issue.Path, issue.Message)
		} else {
			color.Yellow("  %s %s: %s", issue.Severity, issue.Path, issue.Message)
		}
	}
	if err != nil {
		color.Red("FAIL %s: %v", path, err)
		return err
	}

	color.Green("OK   %s (%s, %d sections, %d questions)",
		path, structure.Type, len(structure.Sections), structure.QuestionCount())
	return nil
}

// loadDefinition reads a YAML or JSON definition file and runs the full
// validation pipeline. YAML is normalized through JSON so the document
// validates exactly as it would when stored.
func loadDefinition(path string) (*schema.Structure, []schema.Issue, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		var doc any
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, nil, fmt.Errorf("parse yaml: %w", err)
		}
		raw, err = json.Marshal(doc)
		if err != nil {
			return nil, nil, fmt.Errorf("normalize yaml: %w", err)
		}
	}

	return schema.ParseDocument(raw)
}
