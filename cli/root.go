// Package cli wires the table, driver and sinks into the rwkv command.
package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Config  string
}

// NewRootCommand creates the rwkv root command. Run without a subcommand,
// it behaves like "rwkv run" with no flags: commands.txt in, output.txt out.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	runCmd := NewRunCommand(opts)
	cmd := &cobra.Command{
		Use:   "rwkv",
		Short: "Concurrent key-value table with an audited reader/writer lock",
		Long: `rwkv runs every command of a command file in its own goroutine against
one shared table guarded by a single reader/writer lock, and writes an audit
log of every lock acquisition and release followed by the final table.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTable(&RunOptions{RootOptions: opts}, cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose diagnostics on stderr")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "path to a YAML config file")

	cmd.AddCommand(runCmd)
	cmd.AddCommand(NewHashCommand())

	return cmd
}

// setupLogging installs the default slog logger for diagnostics. The audit
// log is separate and unaffected.
func setupLogging(verbose bool, w io.Writer) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
