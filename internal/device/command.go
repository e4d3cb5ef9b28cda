package device

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// errEmptyReply is returned when a get command prints nothing.
var errEmptyReply = errors.New("empty reply")

// CommandTransport reaches the hardware through external helper programs.
//
// A read runs "<get> <index> <code>" and decodes stdout as JSON, falling
// back to the trimmed text when it is not JSON. A write runs
// "<set> <index> <code> <json-value>" and ignores stdout.
type CommandTransport struct {
	get     []string
	set     []string
	timeout time.Duration
}

// NewCommandTransport splits get and set on whitespace so that a helper can
// carry its own fixed arguments.
func NewCommandTransport(get, set string, timeout time.Duration) *CommandTransport {
	return &CommandTransport{
		get:     strings.Fields(get),
		set:     strings.Fields(set),
		timeout: timeout,
	}
}

// Read implements Transport.
func (c *CommandTransport) Read(ctx context.Context, index int, code string) (Value, error) {
	out, err := c.run(ctx, c.get, strconv.Itoa(index), code)
	if err != nil {
		return nil, err
	}

	text := bytes.TrimSpace(out)
	if len(text) == 0 {
		return nil, errEmptyReply
	}
	if v, err := DecodeValue(text); err == nil {
		return v, nil
	}
	return string(text), nil
}

// Write implements Transport.
func (c *CommandTransport) Write(ctx context.Context, index int, code string, v Value) error {
	arg, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding value: %w", err)
	}
	_, err = c.run(ctx, c.set, strconv.Itoa(index), code, string(arg))
	return err
}

func (c *CommandTransport) run(ctx context.Context, command []string, args ...string) ([]byte, error) {
	if len(command) == 0 {
		return nil, errors.New("no command configured")
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	argv := append(append([]string{}, command[1:]...), args...)
	cmd := exec.CommandContext(ctx, command[0], argv...) //nolint:gosec // helper path comes from operator config

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", command[0], err, msg)
		}
		return nil, fmt.Errorf("%s: %w", command[0], err)
	}
	return stdout.Bytes(), nil
}

var _ Transport = (*CommandTransport)(nil)
