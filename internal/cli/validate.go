package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/dqb/internal/schemaload"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool       `json:"valid"`
	Schema  string     `json:"schema"`
	Primary string     `json:"primary,omitempty"`
	Tables  int        `json:"tables"`
	Fields  int        `json:"fields"`
	Errors  []CLIError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [schema-file]",
		Short: "Build every table and field of a schema",
		Long: `Load a schema configuration and build every declared table and field,
reporting all declaration errors at once. Without an argument the configured
schema is validated.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runValidate(rootOpts, path, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, err := opts.config(cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, configError(err))
	}
	if path == "" {
		path = cfg.Schema
	}
	if path == "" {
		return formatter.Fail(ExitCommandError, &schemaload.LoadError{Code: schemaload.ErrCodeReadFailed,
			Message: "no schema given (pass a file, or set schema in dqb.yaml, --schema or DQB_SCHEMA)"})
	}

	loaded, err := schemaload.LoadFile(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	formatter.VerboseLog("Loaded %d table(s), %d field(s) from %s", len(loaded.Tables), len(loaded.Fields), path)

	s := loaded.Schema()
	result := ValidationResult{
		Valid:   true,
		Schema:  path,
		Primary: s.PrimaryTable(),
		Tables:  len(s.Tables()),
		Fields:  len(s.Fields()),
	}

	if _, err := s.Build(); err != nil {
		result.Valid = false
		for _, e := range splitErrors(err) {
			result.Errors = append(result.Errors, CLIError{Code: errorCode(e), Message: e.Error()})
		}
	}

	return outputValidation(formatter, result)
}

// splitErrors flattens errors.Join trees.
func splitErrors(err error) []error {
	var joined interface{ Unwrap() []error }
	if !errors.As(err, &joined) {
		return []error{err}
	}
	var out []error
	for _, e := range joined.Unwrap() {
		out = append(out, splitErrors(e)...)
	}
	return out
}

func outputValidation(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		response := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			response.Status = "error"
			response.Error = &result.Errors[0]
		}
		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
	} else {
		w := formatter.Writer
		if result.Valid {
			fmt.Fprintf(w, "✓ %s is valid: primary table %s, %d table(s), %d field(s)\n",
				result.Schema, result.Primary, result.Tables, result.Fields)
		} else {
			fmt.Fprintf(w, "✗ %s has %d error(s)\n\n", result.Schema, len(result.Errors))
			for _, e := range result.Errors {
				fmt.Fprintf(w, "  %s\n", e.Message)
			}
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
	}
	return nil
}
