package sequence

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anvilos/ingot/config"
	"github.com/anvilos/ingot/gate"
	"github.com/anvilos/ingot/runner"
	"github.com/anvilos/ingot/secret"
	"github.com/anvilos/ingot/types"
)

const testDevice = "/dev/zz0"

// envStub satisfies hostenv.Environment with a healthy host whose mount
// table is scripted per test.
type envStub struct {
	mounts []string
}

func (envStub) EffectiveUID() int                 { return 0 }
func (envStub) BlockDevice(string) (int64, error) { return 500000, nil }
func (envStub) FirmwareMode() types.FirmwareMode  { return types.FirmwareUEFI }
func (envStub) CPUVendor() (types.CPUVendor, error) {
	return types.CPUVendorIntel, nil
}
func (envStub) GPUVendors() ([]types.GPUVendor, error) {
	return []types.GPUVendor{types.GPUVendorNvidia}, nil
}
func (envStub) NetworkMedium() (types.NetworkMedium, error) {
	return types.MediumEthernet, nil
}
func (e envStub) Mounts() ([]string, error) { return e.mounts, nil }

func newTestSequencer(g gate.Gate, r *runner.Recorder) *Sequencer {
	return &Sequencer{
		Conf:    config.DefaultConfig(),
		Env:     envStub{},
		Runner:  r,
		Gate:    g,
		Secrets: secret.Static("hunter2"),
	}
}

func TestRunFullSequence(t *testing.T) {
	rec := &runner.Recorder{}
	// Six stage gates plus the final teardown gate.
	seq := newTestSequencer(gate.NewScripted(true, true, true, true, true, true, true), rec)

	require.NoError(t, seq.Run(context.Background(), testDevice))

	lines := rec.CommandLines()
	require.NotEmpty(t, lines)
	assert.Equal(t, "sgdisk --zap-all /dev/zz0", lines[0])
	assert.Equal(t, "systemctl reboot", lines[len(lines)-1])

	// Tool order mirrors stage order.
	joined := strings.Join(lines, "\n")
	order := []string{"sgdisk", "cryptsetup", "pvcreate", "vgcreate", "lvcreate", "mkfs.fat", "mkswap", "mkfs.ext4", "mount", "swapon", "pacstrap", "swapoff", "umount", "vgchange", "cryptsetup close"}
	last := -1
	for _, tool := range order {
		idx := strings.Index(joined, tool)
		require.GreaterOrEqual(t, idx, 0, "missing %s", tool)
		assert.Greater(t, idx, last, "%s out of order", tool)
		last = idx
	}

	require.Len(t, seq.Records, 6)
	for _, r := range seq.Records {
		assert.Equal(t, types.StageSucceeded, r.Status, r.Name)
	}
}

func TestRunPlanSizesReachSgdisk(t *testing.T) {
	rec := &runner.Recorder{}
	seq := newTestSequencer(gate.NewScripted(true, true, true, true, true, true, true), rec)
	require.NoError(t, seq.Run(context.Background(), testDevice))

	joined := strings.Join(rec.CommandLines(), "\n")
	assert.Contains(t, joined, "--new=1:0:+1024M")
	assert.Contains(t, joined, "--new=2:0:+32768M")
	assert.Contains(t, joined, "--new=3:0:+391208M")
}

func TestRunDeclineAbortsBeforeStage(t *testing.T) {
	rec := &runner.Recorder{}
	// Accept Partition, decline Encrypt.
	seq := newTestSequencer(gate.NewScripted(true, false), rec)

	err := seq.Run(context.Background(), testDevice)
	require.ErrorIs(t, err, types.ErrConfirmationDeclined)

	joined := strings.Join(rec.CommandLines(), "\n")
	assert.Contains(t, joined, "sgdisk")
	assert.NotContains(t, joined, "cryptsetup", "declined stage must not run")
	assert.NotContains(t, joined, "reboot", "no teardown after abort")

	require.Len(t, seq.Records, 2)
	assert.Equal(t, types.StageSucceeded, seq.Records[0].Status)
	assert.Equal(t, types.StagePending, seq.Records[1].Status)
}

func TestRunDeclineAtFirstGateMutatesNothing(t *testing.T) {
	rec := &runner.Recorder{}
	seq := newTestSequencer(gate.NewScripted(false), rec)

	err := seq.Run(context.Background(), testDevice)
	require.ErrorIs(t, err, types.ErrConfirmationDeclined)
	assert.Empty(t, rec.Calls)
}

func TestRunEncryptFailureReportsSideEffects(t *testing.T) {
	rec := &runner.Recorder{FailOn: "luksFormat"}
	seq := newTestSequencer(gate.NewScripted(true, true, true, true, true, true, true), rec)

	err := seq.Run(context.Background(), testDevice)
	var serr *types.StageError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "Encrypt", serr.Stage)

	// The report carries the partition side effects from stage 1; the
	// failed luksFormat itself created nothing.
	assert.Contains(t, serr.SideEffects, "/dev/zz0p1")
	assert.Contains(t, serr.SideEffects, "/dev/zz0p2")
	assert.Contains(t, serr.SideEffects, "/dev/zz0p3")
	assert.NotContains(t, serr.SideEffects, "/dev/mapper/cryptlvm")

	// The sequencer halts: LVM-setup is never attempted.
	assert.NotContains(t, strings.Join(rec.CommandLines(), "\n"), "pvcreate")

	require.Len(t, seq.Records, 2)
	assert.Equal(t, types.StageFailed, seq.Records[1].Status)
}

func TestRunMidStageFailureRecordsPartialEffects(t *testing.T) {
	// Fail the third sgdisk --new: partitions 1 and 2 exist, 3 does not.
	rec := &runner.Recorder{FailOn: "--new=3"}
	seq := newTestSequencer(gate.NewScripted(true), rec)

	err := seq.Run(context.Background(), testDevice)
	var serr *types.StageError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "Partition", serr.Stage)
	assert.Contains(t, serr.SideEffects, "/dev/zz0p1")
	assert.Contains(t, serr.SideEffects, "/dev/zz0p2")
	assert.NotContains(t, serr.SideEffects, "/dev/zz0p3")
}

func TestRunDeclinedTeardownLeavesStateInPlace(t *testing.T) {
	rec := &runner.Recorder{}
	// Accept all six stages, decline the final teardown gate.
	seq := newTestSequencer(gate.NewScripted(true, true, true, true, true, true, false), rec)

	err := seq.Run(context.Background(), testDevice)
	require.ErrorIs(t, err, types.ErrConfirmationDeclined)
	joined := strings.Join(rec.CommandLines(), "\n")
	assert.Contains(t, joined, "pacstrap")
	assert.NotContains(t, joined, "swapoff")
	assert.NotContains(t, joined, "reboot")
}

func TestRunValidationFailureIsPreMutation(t *testing.T) {
	rec := &runner.Recorder{}
	seq := newTestSequencer(gate.NewScripted(true), rec)
	seq.Conf.RequiredGPUVendor = types.GPUVendorAMD

	err := seq.Run(context.Background(), testDevice)
	var verr *types.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, types.CheckGPU, verr.Kind)
	assert.Empty(t, rec.Calls)
}

func TestRunLuksPassphraseFedOnStdin(t *testing.T) {
	rec := &runner.Recorder{}
	seq := newTestSequencer(gate.NewScripted(true, true, true, true, true, true, true), rec)
	require.NoError(t, seq.Run(context.Background(), testDevice))

	var sawFormat, sawOpen bool
	for _, inv := range rec.Calls {
		if inv.Path != "cryptsetup" {
			continue
		}
		switch {
		case contains(inv.Args, "luksFormat"):
			sawFormat = true
			assert.Equal(t, []byte("hunter2"), inv.Input)
		case contains(inv.Args, "open"):
			sawOpen = true
			assert.Equal(t, []byte("hunter2"), inv.Input)
		}
	}
	assert.True(t, sawFormat)
	assert.True(t, sawOpen)
}

func contains(args []string, want string) bool {
	for _, a := range args {
		if a == want {
			return true
		}
	}
	return false
}
