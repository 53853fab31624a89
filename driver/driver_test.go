package driver

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"rwlock_kv/audit"
	"rwlock_kv/command"
	"rwlock_kv/hasher"
	"rwlock_kv/table"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newTable() (*table.Table, *bytes.Buffer, *table.LockCounters) {
	var buf bytes.Buffer
	log := audit.New(&buf, audit.WithClock(func() time.Time { return time.UnixMicro(1) }))
	counters := table.NewLockCounters()
	return table.New(log, counters), &buf, counters
}

func parse(t *testing.T, lines ...string) []command.Command {
	t.Helper()
	cmds, err := command.ParseAll(strings.NewReader(strings.Join(lines, "\n")), command.Options{})
	require.NoError(t, err)
	require.Len(t, cmds, len(lines))
	return cmds
}

// terminal returns the untimestamped summary that follows the blank line.
func terminal(buf *bytes.Buffer) string {
	_, after, _ := strings.Cut(buf.String(), "\n\n")
	return after
}

func TestRunCommutingCommandsGolden(t *testing.T) {
	tb, buf, _ := newTable()
	cmds := parse(t,
		"insert,Alice,50000,1",
		"insert,Bob,60000,2",
		"insert,Carol,30000,3",
		"search,Alice,4",
		"print,5",
		"delete,Unknown,6",
	)

	report, recs, err := Run(tb, cmds, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, 6, report.Executed)
	assert.Empty(t, report.Failures)
	assert.Len(t, recs, 3)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "commuting_terminal", []byte(terminal(buf)))
}

func TestIDsDoNotOrderExecution(t *testing.T) {
	// both inserts race; whichever takes the lock first wins, whatever its id
	assert := assert.New(t)
	tb, buf, counters := newTable()
	cmds := parse(t,
		"insert,Eve,45000,2",
		"insert,Eve,40000,1",
	)

	report, recs, err := Run(tb, cmds, quietLogger())
	require.NoError(t, err)
	assert.Equal(2, report.Executed)
	require.Len(t, recs, 1)
	assert.Contains([]uint32{40000, 45000}, recs[0].Value)
	assert.Equal(1, strings.Count(buf.String(),
		fmt.Sprintf("Insert failed. Entry %d is a duplicate.", hasher.Hash("Eve"))))
	assert.Equal(uint64(2), counters.Acquisitions())
}

func TestExecuteManyUnits(t *testing.T) {
	assert := assert.New(t)
	tb, _, counters := newTable()

	var lines []string
	for i := 300; i > 0; i-- {
		lines = append(lines, fmt.Sprintf("insert,unit-%d,%d,%d", i, i, i))
		if i%10 == 0 {
			lines = append(lines, fmt.Sprintf("print,%d", i))
		}
	}
	cmds := parse(t, lines...)

	report, recs, err := Run(tb, cmds, quietLogger())
	require.NoError(t, err)
	assert.Equal(len(cmds), report.Executed)
	assert.Len(recs, 300)
	assert.Equal(uint64(len(cmds)), counters.Acquisitions())
	assert.Equal(counters.Acquisitions(), counters.Releases())
}

func TestExecuteUnknownOpIsFailure(t *testing.T) {
	assert := assert.New(t)
	tb, _, counters := newTable()
	cmds := []command.Command{
		{Op: command.Insert, Name: "Alice", Value: 1, ID: 1},
		{Op: command.Op(42), ID: 2},
	}

	report := Execute(tb, cmds, quietLogger())
	assert.Equal(1, report.Executed)
	require.Len(t, report.Failures, 1)
	assert.Equal(uint32(2), report.Failures[0].Command.ID)
	assert.ErrorContains(report.Failures[0].Err, "unknown op")
	assert.Equal(uint64(1), counters.Acquisitions())
}

func TestExecutePanicStaysInUnit(t *testing.T) {
	// a nil table panics inside every unit; the driver must still return
	cmds := []command.Command{
		{Op: command.Insert, Name: "Alice", Value: 1, ID: 1},
		{Op: command.Print, ID: 2},
	}
	report := Execute(nil, cmds, quietLogger())
	assert.Equal(t, 0, report.Executed)
	assert.Len(t, report.Failures, 2)
	for _, f := range report.Failures {
		assert.ErrorContains(t, f.Err, "panic")
	}
}

func TestExecuteNoCommands(t *testing.T) {
	tb, buf, _ := newTable()
	report, recs, err := Run(tb, nil, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Executed)
	assert.Empty(t, recs)
	assert.Equal(t, "\nNumber of lock acquisitions: 0\nNumber of lock releases: 0\nFinal Table:\n", buf.String())
}
