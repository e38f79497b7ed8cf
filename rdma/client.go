package rdma

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/anmitsu/go-shlex"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultTool is the iproute2 rdma utility.
	DefaultTool = "rdma"

	listFlags = "-j -dd"
	rawFlag   = "-jpr"
)

// Runner executes an external command and returns its stdout.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ToolError is returned when the external tool exits non-zero.
type ToolError struct {
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("rdmatool command is incorrect: %s exited with status %d", strings.Join(e.Args, " "), e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run starts name with args and waits for it, capturing stdout and stderr separately.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &ToolError{
				Args:     append([]string{name}, args...),
				ExitCode: exitErr.ExitCode(),
				Stderr:   strings.TrimSpace(stderr.String()),
			}
		}
		return nil, errors.Wrapf(err, "run %s", name)
	}

	return stdout.Bytes(), nil
}

// Client builds and runs `rdma res show` queries.
type Client struct {
	tool   []string
	runner Runner
}

// NewClient returns a client invoking tool, which may carry a prefix such as
// "sudo rdma". A nil runner defaults to ExecRunner.
func NewClient(tool string, runner Runner) (*Client, error) {
	if strings.TrimSpace(tool) == "" {
		tool = DefaultTool
	}

	argv, err := shlex.Split(tool, true)
	if err != nil {
		return nil, errors.Wrapf(err, "parse tool %q", tool)
	}
	if len(argv) == 0 {
		return nil, errors.Errorf("parse tool %q: empty command", tool)
	}

	if runner == nil {
		runner = ExecRunner{}
	}

	return &Client{tool: argv, runner: runner}, nil
}

// Args returns the full argv of a query for resource r on device, without
// the tool itself.
func Args(k Kind, device string, conditions []string, raw bool) []string {
	args := []string{"res", "show", string(k.Resource)}
	args = append(args, k.Selector(device)...)
	args = append(args, conditions...)
	if raw {
		args = append(args, rawFlag)
	} else {
		args = append(args, strings.Fields(listFlags)...)
	}
	return args
}

func (c *Client) run(ctx context.Context, args []string) ([]byte, error) {
	argv := append(append([]string(nil), c.tool[1:]...), args...)
	logrus.Debugf("running: %s %s", c.tool[0], strings.Join(argv, " "))
	return c.runner.Run(ctx, c.tool[0], argv...)
}

// List returns the instances of resource r on device matching conditions.
func (c *Client) List(ctx context.Context, r Resource, device string, conditions []string) ([]Entry, error) {
	k, err := LookupKind(r)
	if err != nil {
		return nil, err
	}

	out, err := c.run(ctx, Args(k, device, conditions, false))
	if err != nil {
		return nil, err
	}

	entries, err := ParseListing(k, out)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s listing of %s", r, device)
	}

	logrus.Debugf("%s listing of %s matched %d instances", r, device, len(entries))
	return entries, nil
}

// Raw returns the raw context json of the single instance of resource r
// whose primary index is idx. The output is checked to be json but is
// otherwise returned untouched.
func (c *Client) Raw(ctx context.Context, r Resource, device, idx string) ([]byte, error) {
	k, err := LookupKind(r)
	if err != nil {
		return nil, err
	}

	out, err := c.run(ctx, Args(k, device, []string{k.IndexField, idx}, true))
	if err != nil {
		return nil, err
	}

	if err := checkJSON(out); err != nil {
		return nil, errors.Wrapf(err, "%s %s=%s raw context", r, k.IndexField, idx)
	}

	return out, nil
}
