// Package command parses the command file consumed by the driver.
//
// One command per line, fields separated by commas:
//
//	insert,<name>,<value>,<id>
//	delete,<name>,<id>
//	search,<name>,<id>
//	update,<name>,<value>,<id>
//	print,<id>
//
// Keywords are case-insensitive, "updatesalary" is accepted for "update",
// and names may contain spaces but not commas.
package command

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

type Op int

const (
	Insert Op = iota
	Delete
	Search
	Update
	Print
)

func (op Op) String() string {
	switch op {
	case Insert:
		return "insert"
	case Delete:
		return "delete"
	case Search:
		return "search"
	case Update:
		return "update"
	case Print:
		return "print"
	}
	return fmt.Sprintf("Op(%d)", int(op))
}

// Command is one parsed line. Value is only meaningful for Insert and
// Update, Name for everything but Print. ID labels the command's audit
// lines; it is not a scheduling priority.
type Command struct {
	Op    Op
	Name  string
	Value uint32
	ID    uint32
}

type Options struct {
	// Normalize rewrites names to Unicode NFC, so that composed and
	// decomposed spellings of the same name share a fingerprint.
	Normalize bool
	// OnDrop, if set, is called for every non-blank line that fails to parse.
	OnDrop func(lineNo int, line string)
}

// arity is the number of fields after the keyword.
var arity = map[Op]int{
	Insert: 3,
	Delete: 2,
	Search: 2,
	Update: 3,
	Print:  1,
}

func keyword(s string) (Op, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "insert":
		return Insert, true
	case "delete":
		return Delete, true
	case "search":
		return Search, true
	case "update", "updatesalary":
		return Update, true
	case "print":
		return Print, true
	}
	return 0, false
}

func parseUint32(s string) (uint32, bool) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

// Parse parses a single line. It reports false for anything malformed:
// unknown keyword, wrong field count, empty name, or a number that is not a
// base-10 uint32.
func Parse(line string, opts Options) (Command, bool) {
	head, rest, _ := strings.Cut(strings.TrimSpace(line), ",")
	op, ok := keyword(head)
	if !ok {
		return Command{}, false
	}
	fields := strings.Split(rest, ",")
	if len(fields) != arity[op] {
		return Command{}, false
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	cmd := Command{Op: op}
	if cmd.ID, ok = parseUint32(fields[len(fields)-1]); !ok {
		return Command{}, false
	}
	if op == Print {
		return cmd, true
	}

	cmd.Name = fields[0]
	if cmd.Name == "" {
		return Command{}, false
	}
	if opts.Normalize {
		cmd.Name = norm.NFC.String(cmd.Name)
	}
	if op == Insert || op == Update {
		if cmd.Value, ok = parseUint32(fields[1]); !ok {
			return Command{}, false
		}
	}
	return cmd, true
}

// ParseAll parses every line of r, skipping blank lines and dropping
// malformed ones. Only read errors are returned.
func ParseAll(r io.Reader, opts Options) ([]Command, error) {
	var cmds []Command
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		cmd, ok := Parse(line, opts)
		if !ok {
			if opts.OnDrop != nil {
				opts.OnDrop(lineNo, line)
			}
			continue
		}
		cmds = append(cmds, cmd)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read commands: %w", err)
	}
	return cmds, nil
}
