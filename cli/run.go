package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"rwlock_kv/audit"
	"rwlock_kv/auditdb"
	"rwlock_kv/command"
	"rwlock_kv/config"
	"rwlock_kv/driver"
	"rwlock_kv/metrics"
	"rwlock_kv/table"
)

// RunOptions holds flags for the run command. Flags that are set win over
// the config file.
type RunOptions struct {
	*RootOptions
	Commands  string
	Output    string
	AuditDB   string
	Metrics   string
	Normalize bool
	Quiet     bool
}

func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a command file against a fresh table",
		Long: `Run every command of the command file concurrently against an empty
table and write the audit log.

Example:
  rwkv run
  rwkv run --commands cmds.txt --output out.txt --audit-db runs.db
  rwkv run --config rwkv.yaml --quiet`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTable(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Commands, "commands", "", "command file (default commands.txt)")
	cmd.Flags().StringVar(&opts.Output, "output", "", "audit log file (default output.txt)")
	cmd.Flags().StringVar(&opts.AuditDB, "audit-db", "", "also record the audit log in this SQLite file")
	cmd.Flags().StringVar(&opts.Metrics, "metrics", "", "write Prometheus metrics to this file after the run")
	cmd.Flags().BoolVar(&opts.Normalize, "normalize", false, "NFC-normalize names before hashing")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "do not echo results to stdout")

	return cmd
}

// resolve merges the config file and explicitly set flags.
func (o *RunOptions) resolve(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if o.Config != "" {
		loaded, err := config.Load(o.Config)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("commands") {
		cfg.Commands = o.Commands
	}
	if flags.Changed("output") {
		cfg.Output = o.Output
	}
	if flags.Changed("audit-db") {
		cfg.AuditDB = o.AuditDB
	}
	if flags.Changed("metrics") {
		cfg.Metrics = o.Metrics
	}
	if flags.Changed("normalize") {
		cfg.NormalizeNames = o.Normalize
	}
	if flags.Changed("quiet") {
		cfg.Quiet = o.Quiet
	}
	return cfg, cfg.Validate()
}

func runTable(opts *RunOptions, cmd *cobra.Command) error {
	setupLogging(opts.Verbose, cmd.ErrOrStderr())

	cfg, err := opts.resolve(cmd)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	f, err := os.Open(cfg.Commands)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open command file", err)
	}
	cmds, err := command.ParseAll(f, command.Options{
		Normalize: cfg.NormalizeNames,
		OnDrop: func(lineNo int, line string) {
			slog.Warn("dropping malformed command", "file", cfg.Commands, "line", lineNo, "text", line)
		},
	})
	f.Close()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read command file", err)
	}
	slog.Info("commands parsed", "file", cfg.Commands, "count", len(cmds))

	runID := uuid.Must(uuid.NewV7()).String()
	var logOpts []audit.Option
	if cfg.AuditDB != "" {
		db, err := auditdb.Open(cfg.AuditDB, runID)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open audit database", err)
		}
		defer func() {
			if closeErr := db.Close(); closeErr != nil {
				slog.Error("error closing audit database", "error", closeErr)
			}
		}()
		logOpts = append(logOpts, audit.WithMirror(db))
		slog.Info("mirroring audit log", "db", cfg.AuditDB, "run_id", runID)
	}

	log, err := audit.Create(cfg.Output, logOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create audit log", err)
	}

	var console io.Writer = io.Discard
	if !cfg.Quiet {
		console = cmd.OutOrStdout()
	}
	tableOpts := []table.Option{table.WithConsole(console)}
	var recorder *metrics.Recorder
	if cfg.Metrics != "" {
		recorder = metrics.New()
		tableOpts = append(tableOpts, table.WithRecorder(recorder))
	}

	t := table.New(log, table.NewLockCounters(), tableOpts...)
	report, _, runErr := driver.Run(t, cmds, driver.WithLogger(slog.Default()))

	if err := log.Close(); err != nil {
		return WrapExitError(ExitCommandError, "failed to write audit log", err)
	}
	if runErr != nil {
		return WrapExitError(ExitFailure, "run failed", runErr)
	}
	if recorder != nil {
		if err := recorder.WriteTextfile(cfg.Metrics); err != nil {
			return WrapExitError(ExitCommandError, "failed to write metrics", err)
		}
	}

	slog.Info("run complete", "run_id", runID, "executed", report.Executed, "failed", len(report.Failures))
	if len(report.Failures) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d commands failed", len(report.Failures), len(cmds)))
	}
	return nil
}
