// cmd/tools/catalogue-check/main.go
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"insurance-notifications/internal/common/validation"
	"insurance-notifications/internal/models"
	"insurance-notifications/pkg/registry"

	"github.com/samber/lo"
)

func main() {
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	listCmd := flag.NewFlagSet("list", flag.ExitOnError)

	validatePath := validateCmd.String("path", "", "Path to catalogue file (built-in catalogue when empty)")
	listPath := listCmd.String("path", "", "Path to catalogue file (built-in catalogue when empty)")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "validate":
		validateCmd.Parse(os.Args[2:])
		catalogue, err := registry.LoadCatalogue(*validatePath)
		if err != nil {
			fmt.Printf("Error loading catalogue: %v\n", err)
			os.Exit(1)
		}
		if err := validateCatalogue(catalogue); err != nil {
			fmt.Printf("Catalogue validation failed:\n%v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Catalogue validation passed. Found %d kinds and %d activities.\n",
			len(catalogue.Kinds), len(catalogue.Activities))

	case "list":
		listCmd.Parse(os.Args[2:])
		catalogue, err := registry.LoadCatalogue(*listPath)
		if err != nil {
			fmt.Printf("Error loading catalogue: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(describe(catalogue))

	case "help":
		fallthrough
	default:
		help()
	}
}

// validateCatalogue reports every problem found, joined into one error.
func validateCatalogue(c *registry.Catalogue) error {
	var errs []error

	if len(c.Kinds) == 0 {
		errs = append(errs, errors.New("catalogue contains no kinds"))
	}
	for _, kind := range c.Kinds {
		if !models.Kind(kind.Type).Valid() {
			errs = append(errs, fmt.Errorf("kind %q is not dispatchable", kind.Type))
		}
		if kind.DisplayName == "" {
			errs = append(errs, fmt.Errorf("kind %s missing required field: displayName", kind.Type))
		}
		if len(kind.DataSchema) > 0 {
			if _, err := validation.Validate(kind.DataSchema, map[string]interface{}{}); err != nil {
				errs = append(errs, fmt.Errorf("kind %s has an invalid dataSchema: %w", kind.Type, err))
			}
		}
	}
	if len(c.BulkKinds()) == 0 {
		errs = append(errs, errors.New("catalogue allows no bulk kinds"))
	}

	taskTypes := lo.Map(c.Activities, func(a registry.Activity, _ int) string { return a.TaskType })
	for _, dup := range lo.FindDuplicates(taskTypes) {
		errs = append(errs, fmt.Errorf("duplicate activity taskType: %s", dup))
	}
	for _, activity := range c.Activities {
		if activity.ID == "" {
			errs = append(errs, errors.New("activity missing required field: id"))
		}
		if activity.TaskType == "" {
			errs = append(errs, fmt.Errorf("activity %s missing required field: taskType", activity.ID))
		}
		if _, err := validation.Validate(activity.InputSchema, map[string]interface{}{}); err != nil {
			errs = append(errs, fmt.Errorf("activity %s has an invalid inputSchema: %w", activity.ID, err))
		}
	}

	return errors.Join(errs...)
}

func describe(c *registry.Catalogue) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Catalogue %s (updated %s)\n\nKinds:\n", c.Version, c.LastUpdated)
	for _, kind := range c.Kinds {
		bulk := ""
		if kind.Bulk {
			bulk = " [bulk]"
		}
		fmt.Fprintf(&b, "  %-22s %s%s\n", kind.Type, kind.DisplayName, bulk)
	}
	b.WriteString("\nActivities:\n")
	for _, activity := range c.Activities {
		fmt.Fprintf(&b, "  %-22s %s (retries: %d)\n", activity.TaskType, activity.DisplayName, activity.Retries)
	}
	return b.String()
}

func help() {
	fmt.Print(`
Usage: catalogue-check <command> [flags]

Commands:
  validate  Validate a notification catalogue
  list      Print the kinds and activities of a catalogue
  help      Show this help message

Examples:
  catalogue-check validate
  catalogue-check validate -path configs/catalogue.json
  catalogue-check list

Use 'catalogue-check <command> -h' for more information about a command.
` + "\n")
}
