package provision

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	cmdcore "github.com/anvilos/ingot/cmd/core"
	"github.com/anvilos/ingot/gate"
	"github.com/anvilos/ingot/hostenv"
	"github.com/anvilos/ingot/layout"
	"github.com/anvilos/ingot/lock/flock"
	"github.com/anvilos/ingot/runner"
	"github.com/anvilos/ingot/secret"
	"github.com/anvilos/ingot/sequence"
	"github.com/anvilos/ingot/target"
	"github.com/anvilos/ingot/utils"
)

type Handler struct {
	cmdcore.BaseHandler
}

// Run executes the full gated sequence against the device.
func (h Handler) Run(cmd *cobra.Command, args []string) error {
	ctx, conf, err := h.Init(cmd)
	if err != nil {
		return err
	}
	device := args[0]

	if err := utils.EnsureDirs(conf.RunDir); err != nil {
		return err
	}
	lockPath := filepath.Join(conf.RunDir, filepath.Base(device)+".lock")

	seq := &sequence.Sequencer{
		Conf:    conf,
		Env:     hostenv.System{},
		Runner:  runner.Exec{},
		Gate:    gate.Terminal{Timeout: time.Duration(conf.GateTimeoutSeconds) * time.Second},
		Secrets: secret.Terminal{},
		Target:  target.Configurator{},
		Locker:  flock.New(lockPath),
	}
	return seq.Run(ctx, device)
}

// Plan validates and prints the partition plan. Read-only.
func (h Handler) Plan(cmd *cobra.Command, args []string) error {
	ctx, conf, err := h.Init(cmd)
	if err != nil {
		return err
	}

	_, device, err := hostenv.Validate(ctx, hostenv.System{}, conf, args[0])
	if err != nil {
		return err
	}
	plan, err := layout.Plan(device.TotalCapacityMiB, conf)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), layout.Render(device, plan, conf))
	return nil
}

// Validate runs the precondition checks and reports the detected profile.
func (h Handler) Validate(cmd *cobra.Command, args []string) error {
	ctx, conf, err := h.Init(cmd)
	if err != nil {
		return err
	}

	profile, device, err := hostenv.Validate(ctx, hostenv.System{}, conf, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d MiB, cpu=%s gpu=%s firmware=%s network=%s\n",
		device.Path, device.TotalCapacityMiB,
		profile.CPUVendor, profile.GPUVendor, profile.FirmwareMode, profile.NetworkMedium)
	return nil
}
