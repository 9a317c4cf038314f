package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	// Config is loaded on first use by a subcommand.
	Config *Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the dqb CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "dqb",
		Short: "dqb - dynamic query builder",
		Long: `Compile field, filter, order and page requests into SQL against a
declared schema of tables and fields, and run them.

Configuration is read from dqb.yaml (searched from the working directory up
to the repository root), DQB_* environment variables and flags.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.ConfigPath, "config", "", "config file (default: dqb.yaml found upwards from cwd)")
	flags.String("schema", "", "schema configuration file (.json, .yaml, .cue)")
	flags.Int("access-level", 0, "caller access level")
	flags.String("driver", "", "database driver (sqlite3|mysql|pgx)")
	flags.String("dsn", "", "database connection string")
	flags.String("cache", "", "schema snapshot cache (none|memory|sql)")

	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// config returns the loaded configuration, loading it on first use. Flags
// bound to config keys are read from cmd, which holds the inherited
// persistent flags once parsed.
func (o *RootOptions) config(cmd *cobra.Command) (*Config, error) {
	if o.Config != nil {
		return o.Config, nil
	}
	cfg, _, err := LoadConfig(o.ConfigPath, cmd.Flags())
	if err != nil {
		return nil, err
	}
	o.Config = cfg
	return cfg, nil
}

// formatter builds the output formatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
