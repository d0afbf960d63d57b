package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sryze/wdd/sizefmt"
	"github.com/sryze/wdd/transfer"
)

const usageText = `Usage: wdd if=<in_file> of=<out_file> [bs=N] [count=N] [status=progress|screen|none]
       wdd list`

// Status modes.
const (
	statusDefault  = ""
	statusProgress = "progress"
	statusScreen   = "screen"
	statusNone     = "none"
)

// errUsage marks argument errors that are answered with the usage text.
var errUsage = errors.New("invalid arguments")

type operands struct {
	list   bool
	input  string
	output string
	bs     int64
	count  int64
	status string
}

func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

// parseOperands reads dd-style name=value operands. bs and status fall
// back to the configured defaults when not given. A bare list token wins
// over everything else.
func parseOperands(args []string, defaultBS, defaultStatus string) (operands, error) {
	ops := operands{count: transfer.Unbounded}
	bs, status := defaultBS, defaultStatus

	for _, arg := range args {
		if arg == "list" {
			return operands{list: true}, nil
		}
		name, value, ok := strings.Cut(arg, "=")
		if !ok {
			return operands{}, usageError("unexpected operand %q", arg)
		}
		switch name {
		case "if":
			ops.input = value
		case "of":
			ops.output = value
		case "bs":
			bs = value
		case "count":
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil || n < 0 {
				return operands{}, usageError("invalid count %q", value)
			}
			ops.count = n
		case "status":
			status = value
		default:
			return operands{}, usageError("unknown operand %q", name)
		}
	}

	if ops.input == "" || ops.output == "" {
		return operands{}, usageError("both if= and of= are required")
	}

	if bs != "" {
		n, err := sizefmt.Parse(bs)
		if err != nil || n <= 0 {
			return operands{}, usageError("invalid block size %q", bs)
		}
		ops.bs = n
	}

	switch status {
	case statusDefault, statusProgress, statusScreen, statusNone:
		ops.status = status
	default:
		return operands{}, usageError("unknown status %q", status)
	}

	return ops, nil
}

func (o operands) request() transfer.Request {
	return transfer.Request{
		Source:      o.input,
		Destination: o.output,
		BlockSize:   o.bs,
		Count:       o.count,
		Progress:    o.status == statusProgress || o.status == statusScreen,
	}
}
