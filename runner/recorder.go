package runner

import (
	"context"
	"fmt"
	"strings"
)

// Recorder is a Runner for tests and dry runs: it records every invocation
// and never touches the system. FailOn makes the first invocation whose
// rendered command contains the substring fail; Outputs scripts Output
// results by tool path.
type Recorder struct {
	Calls   []Invocation
	FailOn  string
	Outputs map[string]string
}

var _ Runner = (*Recorder)(nil)

func (r *Recorder) Run(_ context.Context, inv Invocation) error {
	r.Calls = append(r.Calls, inv)
	if r.FailOn != "" && strings.Contains(inv.String(), r.FailOn) {
		return fmt.Errorf("%s failed: exit status 1", inv.Path)
	}
	return nil
}

func (r *Recorder) Output(_ context.Context, inv Invocation) (string, error) {
	r.Calls = append(r.Calls, inv)
	if r.FailOn != "" && strings.Contains(inv.String(), r.FailOn) {
		return "", fmt.Errorf("%s failed: exit status 1", inv.Path)
	}
	if out, ok := r.Outputs[inv.Path]; ok {
		return out, nil
	}
	return "", nil
}

// CommandLines renders all recorded invocations, one per line, for
// order-sensitive assertions.
func (r *Recorder) CommandLines() []string {
	lines := make([]string, 0, len(r.Calls))
	for _, inv := range r.Calls {
		lines = append(lines, inv.String())
	}
	return lines
}
