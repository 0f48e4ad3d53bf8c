package livestack

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"runtime"
	"strconv"
	"strings"

	"github.com/getsentry/calltrace/internal/code"
)

var goroutineHeader = regexp.MustCompile(`^goroutine (\d+)(?: gp=\S+ m=\S+(?: mp=\S+)?)? \[(.*)\]:$`)

type (
	// Goroutines enumerates every goroutine of the process from a
	// runtime.Stack dump. The world is stopped while the dump is taken, so
	// the frames it returns describe a consistent state.
	Goroutines struct {
		// BufferSize is the initial dump buffer size, 64KiB when zero.
		BufferSize int
	}

	dumpFrame struct {
		unit   *code.Table
		offset int
		caller *dumpFrame
	}

	rawFrame struct {
		function string
		file     string
		line     int
		offset   int
	}

	rawStack struct {
		id     uint64
		state  string
		frames []rawFrame
	}

	unitKey struct {
		function string
		file     string
	}
)

func (g Goroutines) Stacks() ([]Stack, error) {
	size := g.BufferSize
	if size <= 0 {
		size = 64 << 10
	}
	buf := make([]byte, size)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) {
			return ParseDump(buf[:n])
		}
		buf = make([]byte, 2*len(buf))
	}
}

// ParseDump parses the goroutine dump format written by runtime.Stack and
// by unrecovered panics. Code units are shared by all frames of the dump
// running the same function, with a line table made of every offset seen.
func ParseDump(dump []byte) ([]Stack, error) {
	raw, err := parseRawStacks(dump)
	if err != nil {
		return nil, err
	}

	entries := make(map[unitKey][]code.LineEntry)
	for _, s := range raw {
		for _, f := range s.frames {
			k := unitKey{function: f.function, file: f.file}
			entries[k] = append(entries[k], code.LineEntry{Offset: f.offset, Line: f.line})
		}
	}
	units := make(map[unitKey]*code.Table, len(entries))
	for k, e := range entries {
		units[k] = code.NewTable(k.function, k.file, e...)
	}

	stacks := make([]Stack, 0, len(raw))
	for _, s := range raw {
		stack := Stack{ID: s.id, State: s.state}
		var caller *dumpFrame
		for i := len(s.frames) - 1; i >= 0; i-- {
			f := s.frames[i]
			caller = &dumpFrame{
				unit:   units[unitKey{function: f.function, file: f.file}],
				offset: f.offset,
				caller: caller,
			}
		}
		if caller != nil {
			stack.Top = caller
		}
		stacks = append(stacks, stack)
	}
	return stacks, nil
}

func parseRawStacks(dump []byte) ([]rawStack, error) {
	var (
		stacks   []rawStack
		current  *rawStack
		function string
		skipNext bool
	)
	flush := func() {
		if current != nil {
			stacks = append(stacks, *current)
			current = nil
		}
		function = ""
		skipNext = false
	}

	scanner := bufio.NewScanner(bytes.NewReader(dump))
	scanner.Buffer(make([]byte, 0, 64<<10), 1<<20)
	for lineno := 1; scanner.Scan(); lineno++ {
		line := scanner.Text()
		switch {
		case strings.TrimSpace(line) == "":
			flush()
		case goroutineHeader.MatchString(line):
			flush()
			m := goroutineHeader.FindStringSubmatch(line)
			id, err := strconv.ParseUint(m[1], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid goroutine id: %w", lineno, err)
			}
			current = &rawStack{id: id, state: m[2]}
		case current == nil:
			// Anything outside of a goroutine block, e.g. a panic message.
		case strings.HasPrefix(line, "\t"):
			if skipNext {
				skipNext = false
				continue
			}
			if function == "" {
				return nil, fmt.Errorf("line %d: location without a function", lineno)
			}
			f, err := parseLocation(function, line[1:])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineno, err)
			}
			current.frames = append(current.frames, f)
			function = ""
		case strings.HasPrefix(line, "created by "):
			// The creation site isn't part of the stack.
			skipNext = true
		case strings.HasPrefix(line, "..."):
			// Elided frames.
		default:
			function = trimArguments(line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()
	return stacks, nil
}

// parseLocation parses "/path/to/file.go:12 +0x1d".
func parseLocation(function, location string) (rawFrame, error) {
	f := rawFrame{function: function}
	location = strings.TrimSpace(location)
	hasOffset := false
	if i := strings.LastIndex(location, " +0x"); i >= 0 {
		offset, err := strconv.ParseInt(location[i+len(" +0x"):], 16, 64)
		if err != nil {
			return f, fmt.Errorf("invalid offset in %q: %w", location, err)
		}
		f.offset = int(offset)
		hasOffset = true
		location = location[:i]
	}
	i := strings.LastIndex(location, ":")
	if i < 0 {
		return f, fmt.Errorf("missing line number in %q", location)
	}
	line, err := strconv.Atoi(location[i+1:])
	if err != nil {
		return f, fmt.Errorf("invalid line number in %q: %w", location, err)
	}
	f.file = location[:i]
	f.line = line
	if !hasOffset {
		// Inlined frames carry no offset, key them by line instead.
		f.offset = -line
	}
	return f, nil
}

// trimArguments turns "main.(*T).run(0xc000010000, ...)" into
// "main.(*T).run".
func trimArguments(line string) string {
	line = strings.TrimSpace(line)
	if strings.HasSuffix(line, ")") {
		if i := strings.LastIndex(line, "("); i > 0 {
			return line[:i]
		}
	}
	return line
}

func (f *dumpFrame) Caller() Frame {
	if f.caller == nil {
		return nil
	}
	return f.caller
}

func (f *dumpFrame) Code() code.Unit {
	return f.unit
}

func (f *dumpFrame) Offset() int {
	return f.offset
}
