// Package audit implements the append-only line log that records every
// command, lock transition, and result of a run.
package audit

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/goose-lang/std"
)

// A Mirror receives a copy of every line written to the log.
type Mirror interface {
	Append(micros int64, line string) error
}

type Option func(*Logger)

// WithClock replaces the wall clock used for line timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) { l.now = now }
}

// WithMirror copies every line to m. Lines are queued in log order and
// handed to m by a single background goroutine, so a slow mirror does not
// hold up callers of Log. Close waits for the queue to drain.
func WithMirror(m Mirror) Option {
	return func(l *Logger) { l.mirror = m }
}

// Logger is safe for concurrent use. Each call writes exactly one line, and
// the lock is held only for that write, so lines from different callers
// never interleave.
type Logger struct {
	mu     sync.Mutex
	w      io.Writer
	buf    *bufio.Writer
	closer io.Closer
	now    func() time.Time
	mirror Mirror
	// first write failure; once set, further lines are dropped
	err error

	pending chan mirrorLine
	drainer *std.JoinHandle
	// first mirror failure, owned by the drainer until it is joined
	mirrorErr error
}

type mirrorLine struct {
	micros int64
	line   string
}

// mirrorBacklog bounds the lines queued for the mirror; Log blocks once it
// is full.
const mirrorBacklog = 4096

// New returns a logger writing unbuffered to w.
func New(w io.Writer, opts ...Option) *Logger {
	l := &Logger{w: w, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	if l.mirror != nil {
		pending := make(chan mirrorLine, mirrorBacklog)
		l.pending = pending
		l.drainer = std.Spawn(func() { l.drainMirror(pending) })
	}
	return l
}

func (l *Logger) drainMirror(pending <-chan mirrorLine) {
	for ml := range pending {
		if l.mirrorErr != nil {
			continue
		}
		if err := l.mirror.Append(ml.micros, ml.line); err != nil {
			l.mirrorErr = fmt.Errorf("mirror audit line: %w", err)
		}
	}
}

// Create truncates (or creates) the file at path and logs to it through a
// buffer. Close must be called to flush it.
func Create(path string, opts ...Option) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	buf := bufio.NewWriter(f)
	l := New(buf, opts...)
	l.buf = buf
	l.closer = f
	return l, nil
}

// Log writes msg prefixed with the current time in microseconds since the
// Unix epoch. The timestamp is taken under the lock, so timestamps never go
// backwards through the file.
func (l *Logger) Log(msg string) {
	l.mu.Lock()
	micros := l.now().UnixMicro()
	l.write(micros, strconv.FormatInt(micros, 10)+": "+msg)
	l.mu.Unlock()
}

func (l *Logger) Logf(format string, args ...any) {
	l.Log(fmt.Sprintf(format, args...))
}

// Plain writes msg without a timestamp.
func (l *Logger) Plain(msg string) {
	l.mu.Lock()
	l.write(l.now().UnixMicro(), msg)
	l.mu.Unlock()
}

// write assumes mu is held.
func (l *Logger) write(micros int64, line string) {
	if l.err != nil {
		return
	}
	if _, err := io.WriteString(l.w, line+"\n"); err != nil {
		l.err = fmt.Errorf("write audit line: %w", err)
		return
	}
	if l.pending != nil {
		l.pending <- mirrorLine{micros: micros, line: line}
	}
}

// Err returns the first error encountered writing to the sink. Mirror
// failures are reported by Close.
func (l *Logger) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Close flushes buffered lines, waits for the mirror to catch up, and closes
// the file opened by Create.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var err error
	if l.buf != nil {
		err = l.buf.Flush()
	}
	if l.closer != nil {
		if cerr := l.closer.Close(); err == nil {
			err = cerr
		}
		l.closer = nil
	}
	if l.pending != nil {
		close(l.pending)
		l.pending = nil
		l.drainer.Join()
	}
	if err == nil {
		err = l.err
	}
	if err == nil {
		err = l.mirrorErr
	}
	return err
}
