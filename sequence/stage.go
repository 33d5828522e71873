// Package sequence is the provisioning sequencer: the ordered state
// machine that drives a raw block device through partitioning, encryption,
// volume management, formatting, mounting and bootstrap, gating every
// destructive step on operator confirmation.
package sequence

import (
	"context"

	"github.com/anvilos/ingot/config"
	"github.com/anvilos/ingot/gate"
	"github.com/anvilos/ingot/hostenv"
	"github.com/anvilos/ingot/runner"
	"github.com/anvilos/ingot/secret"
	"github.com/anvilos/ingot/types"
)

// Context carries the frozen run inputs and the mutable run progress
// through the stages. Profile, Device and Plan are set before the first
// stage and never change afterwards.
type Context struct {
	context.Context

	Conf    *config.Config
	Profile types.HardwareProfile
	Device  types.DeviceSpec
	Plan    types.PartitionPlan

	Env     hostenv.Environment
	Runner  runner.Runner
	Gate    gate.Gate
	Secrets secret.Provider

	// Records, one per stage in execution order, owned by the sequencer.
	Records []*types.StageRecord
}

// Step is one external invocation inside a stage plus the resource
// identifiers it creates. Effects are appended to the stage record only
// after the invocation succeeds, so on failure the record holds exactly
// what was actually created.
type Step struct {
	Inv     runner.Invocation
	Effects []string
}

// Stage is one ordered unit of the sequence. Stages run strictly in order;
// stage k+1 never starts unless stage k succeeded.
type Stage struct {
	Name string
	// Intent is the operator-facing description shown at the gate before
	// the stage runs.
	Intent string
	// Check verifies the stage's precondition without mutating anything.
	// Optional; order preconditions are enforced by the sequencer itself.
	Check func(ctx *Context) error
	// Build assembles the stage's invocations from the frozen plan.
	Build func(ctx *Context) ([]Step, error)
}
