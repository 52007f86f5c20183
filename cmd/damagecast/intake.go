package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/frontierstation/damagecast/internal/dispatcher"
)

// maxLine bounds a single command line.
const maxLine = 1 << 20

// reply is written to the output for every command that returns a value or
// fails. Buffered commands reply nothing.
type reply struct {
	Command string `json:"command"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// intake reads one command per line, each a JSON array whose first element
// is the command name and the rest its arguments.
type intake struct {
	d      *dispatcher.Dispatcher
	logger *slog.Logger

	mu  sync.Mutex
	out *json.Encoder
}

func newIntake(d *dispatcher.Dispatcher, out io.Writer, logger *slog.Logger) *intake {
	return &intake{d: d, logger: logger, out: json.NewEncoder(out)}
}

// parseLine splits a line into command and arguments. Non-string elements
// are passed on in their JSON text form.
func parseLine(line string) (dispatcher.Event, error) {
	line = strings.TrimSpace(line)
	if !gjson.Valid(line) {
		return dispatcher.Event{}, fmt.Errorf("invalid JSON: %q", line)
	}
	v := gjson.Parse(line)
	if !v.IsArray() {
		return dispatcher.Event{}, errors.New("command must be a JSON array")
	}
	items := v.Array()
	if len(items) == 0 || items[0].Type != gjson.String || items[0].String() == "" {
		return dispatcher.Event{}, errors.New("command name missing")
	}

	e := dispatcher.Event{Command: items[0].String(), Timestamp: time.Now()}
	for _, it := range items[1:] {
		switch it.Type {
		case gjson.String:
			e.Args = append(e.Args, it.String())
		case gjson.Null:
			e.Args = append(e.Args, "")
		default:
			e.Args = append(e.Args, it.Raw)
		}
	}
	return e, nil
}

// Run processes lines from r until EOF or ctx is done.
func (in *intake) Run(ctx context.Context, r io.Reader) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLine)
	for sc.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		in.handle(ctx, line)
	}
	return sc.Err()
}

func (in *intake) handle(ctx context.Context, line string) {
	e, err := parseLine(line)
	if err != nil {
		in.logger.Warn("Dropping malformed command", "error", err)
		in.write(reply{Error: err.Error()})
		return
	}

	result, err := in.d.Dispatch(ctx, e)
	switch {
	case err != nil:
		in.write(reply{Command: e.Command, Error: err.Error()})
	case result == nil || result == "queued":
	default:
		in.write(reply{Command: e.Command, Result: result})
	}
}

func (in *intake) write(r reply) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if err := in.out.Encode(r); err != nil {
		in.logger.Error("Failed to write reply", "error", err)
	}
}
