package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/dqb/internal/ir"
	"github.com/roach88/dqb/internal/query"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Request requestFlags
	Keep    bool // keep correlation-only fields
}

// QueryResult is one page of records and the total matching count.
type QueryResult struct {
	RequestID    string           `json:"request_id"`
	Page         int              `json:"page"`
	ItemsPerPage int              `json:"items_per_page"`
	Total        int64            `json:"total"`
	Records      []map[string]any `json:"records"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run a request against the database",
		Long: `Compile a request, run it against the configured database, merge the
fields of extra tables and print the records with the total count.

Exit codes:
  0 - Records printed
  1 - The request was rejected
  2 - Command error (configuration, schema, database)

Examples:
  dqb query --fields "name,rating" --order name
  dqb query --driver pgx --dsn postgres://localhost/app --fields "*" --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, cmd)
		},
	}

	opts.Request.register(cmd.Flags())
	cmd.Flags().BoolVar(&opts.Keep, "keep", false, "keep fields selected only to correlate extra tables")

	return cmd
}

func runQuery(opts *QueryOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	cfg, err := opts.config(cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, configError(err))
	}

	sess, err := openSession(ctx, cfg, "", true, formatter.Logger())
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

	records, err := sess.db.Fetch(ctx, b, !opts.Keep)
	if err != nil {
		return formatter.Fail(ExitCommandError, &codedError{code: queryErrorCode(err), err: err})
	}
	total, err := sess.db.Count(ctx, b)
	if err != nil {
		return formatter.Fail(ExitCommandError, &codedError{code: ErrCodeDatabase, err: err})
	}

	page, _ := b.Page()
	result := QueryResult{
		RequestID:    b.RequestID(),
		Page:         page.Page,
		ItemsPerPage: page.ItemsPerPage,
		Total:        total,
		Records:      nativeRecords(records),
	}
	return outputQuery(formatter, result)
}

// queryErrorCode keeps builder usage codes and reports everything else as a
// database error.
func queryErrorCode(err error) string {
	if code := query.ErrorCode(err); code != "" {
		return code
	}
	return ErrCodeDatabase
}

func nativeRecords(records []query.Record) []map[string]any {
	out := make([]map[string]any, len(records))
	for i, r := range records {
		row := make(map[string]any, len(r))
		for k, v := range r {
			row[k] = ir.Native(v)
		}
		out[i] = row
	}
	return out
}

func outputQuery(formatter *OutputFormatter, result QueryResult) error {
	if formatter.Format == "json" {
		return json.NewEncoder(formatter.Writer).Encode(CLIResponse{
			Status:    "ok",
			Data:      result,
			RequestID: result.RequestID,
		})
	}

	w := formatter.Writer
	for _, record := range result.Records {
		line, err := json.Marshal(record)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\n", line)
	}
	fmt.Fprintf(w, "\n%d of %d record(s), page %d\n", len(result.Records), result.Total, result.Page)
	return nil
}
