package sequence

import (
	"context"
	"fmt"
	"strings"

	"github.com/projecteru2/core/log"

	"github.com/anvilos/ingot/config"
	"github.com/anvilos/ingot/gate"
	"github.com/anvilos/ingot/hostenv"
	"github.com/anvilos/ingot/layout"
	"github.com/anvilos/ingot/lock"
	"github.com/anvilos/ingot/runner"
	"github.com/anvilos/ingot/secret"
	"github.com/anvilos/ingot/types"
)

// Configurator runs the in-target configuration sub-sequence after the
// bootstrap stage. Implemented by the target package.
type Configurator interface {
	Configure(ctx *Context) error
}

// Sequencer owns one full provisioning run: validate, plan, gate, execute
// the stages in order, configure the target, tear down. It is the only
// writer to the device; Locker enforces one sequencer per device.
type Sequencer struct {
	Conf    *config.Config
	Env     hostenv.Environment
	Runner  runner.Runner
	Gate    gate.Gate
	Secrets secret.Provider
	// Target is optional; nil skips in-target configuration.
	Target Configurator
	// Locker is optional; nil skips device locking.
	Locker lock.Locker

	// Records of the last run, in stage order.
	Records []*types.StageRecord
}

// Run drives the whole sequence against devicePath. Any error is final:
// validation and plan errors occur before mutation, stage errors halt with
// the side-effect report, a declined gate aborts with no cleanup.
func (s *Sequencer) Run(ctx context.Context, devicePath string) error {
	logger := log.WithFunc("sequence.run")

	if s.Locker != nil {
		ok, err := s.Locker.TryLock(ctx)
		if err != nil {
			return fmt.Errorf("lock device: %w", err)
		}
		if !ok {
			return fmt.Errorf("another sequencer is provisioning %s", devicePath)
		}
		defer s.Locker.Unlock(ctx) //nolint:errcheck
	}

	profile, device, err := hostenv.Validate(ctx, s.Env, s.Conf, devicePath)
	if err != nil {
		return err
	}
	logger.Infof(ctx, "validated %s: %d MiB, cpu=%s gpu=%s firmware=%s network=%s",
		device.Path, device.TotalCapacityMiB,
		profile.CPUVendor, profile.GPUVendor, profile.FirmwareMode, profile.NetworkMedium)

	plan, err := layout.Plan(device.TotalCapacityMiB, s.Conf)
	if err != nil {
		return err
	}

	runCtx := &Context{
		Context: ctx,
		Conf:    s.Conf,
		Profile: profile,
		Device:  device,
		Plan:    plan,
		Env:     s.Env,
		Runner:  s.Runner,
		Gate:    s.Gate,
		Secrets: s.Secrets,
	}

	stages := Stages()
	// The first gate presents the plan; later gates present the previous
	// stage's outcome alongside the next stage's intent.
	summary := layout.Render(device, plan, s.Conf)

	for i, stage := range stages {
		record := &types.StageRecord{Name: stage.Name, Status: types.StagePending}
		runCtx.Records = append(runCtx.Records, record)
		s.Records = runCtx.Records

		title := fmt.Sprintf("Stage %d/%d: %s", i+1, len(stages), stage.Name)
		accepted, err := s.Gate.Confirm(ctx, title, summary+"\nnext: "+stage.Intent)
		if err != nil {
			return err
		}
		if !accepted {
			logger.Warnf(ctx, "operator declined before stage %s", stage.Name)
			return types.ErrConfirmationDeclined
		}
		record.Status = types.StageConfirmed

		if err := s.runStage(runCtx, stage, record); err != nil {
			return err
		}
		summary = fmt.Sprintf("completed %s: %s", stage.Name, strings.Join(record.SideEffects, ", "))
		logger.Infof(ctx, "%s", summary)
	}

	if s.Target != nil {
		accepted, err := s.Gate.Confirm(ctx, "Configure target system",
			summary+"\nnext: write configuration inside the staged root (no further gates until done)")
		if err != nil {
			return err
		}
		if !accepted {
			return types.ErrConfirmationDeclined
		}
		if err := s.Target.Configure(runCtx); err != nil {
			return err
		}
	}

	accepted, err := s.Gate.Confirm(ctx, "Tear down and reboot",
		"unmount the staging root, disable swap, close the encrypted volume and reboot")
	if err != nil {
		return err
	}
	if !accepted {
		return types.ErrConfirmationDeclined
	}
	return s.teardown(runCtx)
}

// runStage executes one stage's invocations in order. Effects are appended
// to the record only after their step succeeds, so a mid-stage failure
// reports exactly what was created.
func (s *Sequencer) runStage(ctx *Context, stage Stage, record *types.StageRecord) error {
	if stage.Check != nil {
		if err := stage.Check(ctx); err != nil {
			record.Status = types.StageFailed
			return s.stageError(stage.Name, err)
		}
	}
	steps, err := stage.Build(ctx)
	if err != nil {
		record.Status = types.StageFailed
		return s.stageError(stage.Name, err)
	}

	record.Status = types.StageRunning
	for _, step := range steps {
		if err := s.Runner.Run(ctx, step.Inv); err != nil {
			record.Status = types.StageFailed
			return s.stageError(stage.Name, err)
		}
		record.SideEffects = append(record.SideEffects, step.Effects...)
	}
	record.Status = types.StageSucceeded
	return nil
}

// stageError aggregates the side effects of every stage run so far into
// the manual-remediation list. No rollback is attempted.
func (s *Sequencer) stageError(name string, err error) error {
	var effects []string
	for _, r := range s.Records {
		effects = append(effects, r.SideEffects...)
	}
	return &types.StageError{Stage: name, SideEffects: effects, Err: err}
}

func (s *Sequencer) teardown(ctx *Context) error {
	logger := log.WithFunc("sequence.teardown")
	steps := []runner.Invocation{
		{Path: "swapoff", Args: []string{ctx.Device.Partition(2)}},
		{Path: "umount", Args: []string{"-R", ctx.Conf.StagingRoot}},
		{Path: "vgchange", Args: []string{"-an", ctx.Conf.VGName}},
		{Path: "cryptsetup", Args: []string{"close", ctx.Conf.MapperName}},
		{Path: "systemctl", Args: []string{"reboot"}},
	}
	for _, inv := range steps {
		if err := s.Runner.Run(ctx, inv); err != nil {
			return fmt.Errorf("teardown: %w", err)
		}
	}
	logger.Infof(ctx, "teardown complete, reboot requested")
	return nil
}
