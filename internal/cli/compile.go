package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/dqb/internal/query"
	"github.com/roach88/dqb/internal/querysql"
	"github.com/roach88/dqb/internal/store"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Request requestFlags
	Dialect string // overrides database.driver for rendering
	Output  string // output file path
}

// CompilationResult is a rendered request.
type CompilationResult struct {
	RequestID   string `json:"request_id"`
	Dialect     string `json:"dialect"`
	SQL         string `json:"sql"`
	Params      []any  `json:"params"`
	CountSQL    string `json:"count_sql"`
	CountParams []any  `json:"count_params"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Render the SQL for a request",
		Long: `Compile a request against the schema and print the SELECT and COUNT
statements with their parameters. No database is contacted.

Examples:
  dqb compile --fields "name,country_name" --filter '["status", "active"]' --order id:desc
  dqb compile --fields "*" --page 2 --items-per-page 10 --dialect pgx`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, cmd)
		},
	}

	opts.Request.register(cmd.Flags())
	cmd.Flags().StringVar(&opts.Dialect, "dialect", "", "render for this driver instead of database.driver")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, err := opts.config(cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, configError(err))
	}

	dialectName := opts.Dialect
	if dialectName == "" {
		dialectName = cfg.Database.Driver
	}
	dialect, err := store.LookupDialect(dialectName)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}

	sess, err := openSession(cmd.Context(), cfg, "", false, formatter.Logger())
	if err != nil {
		return sessionError(formatter, err)
	}
	defer sess.Close()

	req, err := opts.Request.Request()
	if err != nil {
		return formatter.Fail(ExitFailure, err)
	}

	b := sess.Builder()
	if err := b.Prepare(req); err != nil {
		return formatter.Fail(requestExitCode(err), err)
	}
	formatter.VerboseLog("Prepared request %s", b.RequestID())

	result, err := render(b, dialect)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}

	if opts.Output != "" {
		if err := writeJSONFile(result, opts.Output); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
			return WrapExitError(ExitCommandError, ErrCodeWriteFailed, err)
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

// render produces the SELECT and COUNT statements in the dialect's
// placeholder and pagination syntax.
func render(b *query.Builder, dialect store.Dialect) (*CompilationResult, error) {
	page, _ := b.Page()
	stmt, err := b.SQL(dialect.Overrides(page))
	if err != nil {
		return nil, err
	}
	count, err := b.Count()
	if err != nil {
		return nil, err
	}

	result := &CompilationResult{
		RequestID:   b.RequestID(),
		Dialect:     dialect.Driver,
		Params:      stmt.Params,
		CountParams: count.Params,
	}
	if result.SQL, err = dialect.Rebind(stmt.SQL); err != nil {
		return nil, err
	}
	if result.CountSQL, err = dialect.Rebind(count.SQL); err != nil {
		return nil, err
	}
	return result, nil
}

// requestExitCode is ExitFailure for faults in the request itself and
// ExitCommandError for schema and usage faults.
func requestExitCode(err error) int {
	if querysql.IsClientError(err) {
		return ExitFailure
	}
	return ExitCommandError
}

func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.Format == "json" {
		return json.NewEncoder(formatter.Writer).Encode(CLIResponse{
			Status:    "ok",
			Data:      result,
			RequestID: result.RequestID,
		})
	}

	w := formatter.Writer
	params, _ := json.Marshal(result.Params)
	countParams, _ := json.Marshal(result.CountParams)
	fmt.Fprintf(w, "sql: %s\n", result.SQL)
	fmt.Fprintf(w, "params: %s\n", params)
	fmt.Fprintf(w, "count: %s\n", result.CountSQL)
	fmt.Fprintf(w, "count params: %s\n", countParams)
	if outputFile != "" {
		fmt.Fprintf(w, "\nWrote statements to %s\n", outputFile)
	}
	return nil
}

func writeJSONFile(v any, filename string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
