// Package runner executes the external privileged tools every stage is
// built from. Behind an interface so the sequencer and the target
// configurator can be exercised without touching real block devices.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/projecteru2/core/log"
)

// Invocation is one external tool call. Input, when non-nil, is fed to the
// tool's stdin (LUKS passphrases, chpasswd lines).
type Invocation struct {
	Path  string
	Args  []string
	Input []byte
}

func (i Invocation) String() string {
	if len(i.Args) == 0 {
		return i.Path
	}
	return i.Path + " " + strings.Join(i.Args, " ")
}

// Runner runs invocations synchronously, one at a time.
type Runner interface {
	// Run executes the invocation and waits for it to exit.
	Run(ctx context.Context, inv Invocation) error
	// Output executes the invocation and returns its trimmed stdout.
	Output(ctx context.Context, inv Invocation) (string, error)
}

// Exec runs invocations on the live system.
type Exec struct{}

var _ Runner = Exec{}

func (Exec) Run(ctx context.Context, inv Invocation) error {
	logger := log.WithFunc("runner.run")
	logger.Debugf(ctx, "exec: %s", inv)

	cmd := exec.CommandContext(ctx, inv.Path, inv.Args...) //nolint:gosec // invocations are assembled from config, not user text
	if inv.Input != nil {
		cmd.Stdin = bytes.NewReader(inv.Input)
	}
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s failed: %w (output: %s)", inv.Path, err, strings.TrimSpace(string(output)))
	}
	return nil
}

func (Exec) Output(ctx context.Context, inv Invocation) (string, error) {
	logger := log.WithFunc("runner.output")
	logger.Debugf(ctx, "exec: %s", inv)

	cmd := exec.CommandContext(ctx, inv.Path, inv.Args...) //nolint:gosec // invocations are assembled from config, not user text
	if inv.Input != nil {
		cmd.Stdin = bytes.NewReader(inv.Input)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("%s failed: %w (stderr: %s)", inv.Path, err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(string(out)), nil
}

// Chroot rewrites every invocation through arch-chroot so it runs inside
// the staged root.
type Chroot struct {
	Root string
	Next Runner
}

var _ Runner = Chroot{}

func (c Chroot) rewrite(inv Invocation) Invocation {
	return Invocation{
		Path:  "arch-chroot",
		Args:  append([]string{c.Root, inv.Path}, inv.Args...),
		Input: inv.Input,
	}
}

func (c Chroot) Run(ctx context.Context, inv Invocation) error {
	return c.Next.Run(ctx, c.rewrite(inv))
}

func (c Chroot) Output(ctx context.Context, inv Invocation) (string, error) {
	return c.Next.Output(ctx, c.rewrite(inv))
}
