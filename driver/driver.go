// Package driver runs parsed commands against a table, one goroutine per
// command, and produces the final dump once all of them have finished.
package driver

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/goose-lang/std"

	"rwlock_kv/command"
	"rwlock_kv/store"
	"rwlock_kv/table"
)

type Option func(*config)

type config struct {
	log *slog.Logger
}

// WithLogger sets the diagnostic logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.log = l }
}

// Failure describes a unit that did not complete.
type Failure struct {
	Command command.Command
	Err     error
}

// Report summarises one Execute call.
type Report struct {
	Executed int
	Failures []Failure
}

// Execute spawns one unit per command, releases them all at once, and waits
// for every unit to finish. Commands run in whatever order the scheduler
// picks; neither slice order nor ID is respected.
//
// A unit that returns an error or panics is recorded as a Failure; it does
// not stop the others.
func Execute(t *table.Table, cmds []command.Command, opts ...Option) *Report {
	cfg := config{log: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	var mu sync.Mutex
	report := &Report{}
	fail := func(cmd command.Command, err error) {
		cfg.log.Error("command failed", "op", cmd.Op, "id", cmd.ID, "name", cmd.Name, "error", err)
		mu.Lock()
		report.Failures = append(report.Failures, Failure{Command: cmd, Err: err})
		mu.Unlock()
	}

	// units block on start until the last one has been spawned
	start := make(chan struct{})
	handles := make([]*std.JoinHandle, 0, len(cmds))
	for _, cmd := range cmds {
		h := std.Spawn(func() {
			defer func() {
				if r := recover(); r != nil {
					fail(cmd, fmt.Errorf("panic: %v", r))
				}
			}()
			<-start
			if err := apply(t, cmd); err != nil {
				fail(cmd, err)
			}
		})
		handles = append(handles, h)
	}
	cfg.log.Debug("units spawned", "count", len(handles))
	close(start)

	for _, h := range handles {
		h.Join()
	}
	report.Executed = len(cmds) - len(report.Failures)
	cfg.log.Debug("units joined", "executed", report.Executed, "failed", len(report.Failures))
	return report
}

// Run executes cmds and then writes the table's final dump.
func Run(t *table.Table, cmds []command.Command, opts ...Option) (*Report, []store.Record, error) {
	report := Execute(t, cmds, opts...)
	recs, err := t.FinalPrint()
	if err != nil {
		return report, nil, fmt.Errorf("final dump: %w", err)
	}
	return report, recs, nil
}

func apply(t *table.Table, cmd command.Command) error {
	var err error
	switch cmd.Op {
	case command.Insert:
		_, err = t.Insert(cmd.ID, cmd.Name, cmd.Value)
	case command.Delete:
		_, err = t.Delete(cmd.ID, cmd.Name)
	case command.Search:
		_, _, err = t.Search(cmd.ID, cmd.Name)
	case command.Update:
		_, _, err = t.Update(cmd.ID, cmd.Name, cmd.Value)
	case command.Print:
		_, err = t.Print(cmd.ID)
	default:
		err = fmt.Errorf("unknown op %v", cmd.Op)
	}
	return err
}
