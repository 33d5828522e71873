package sequence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anvilos/ingot/config"
	"github.com/anvilos/ingot/secret"
	"github.com/anvilos/ingot/types"
)

func testContext() *Context {
	return &Context{
		Context: context.Background(),
		Conf:    config.DefaultConfig(),
		Profile: types.HardwareProfile{
			CPUVendor:     types.CPUVendorIntel,
			GPUVendor:     types.GPUVendorNvidia,
			FirmwareMode:  types.FirmwareUEFI,
			NetworkMedium: types.MediumEthernet,
		},
		Device:  types.DeviceSpec{Path: "/dev/zz0", TotalCapacityMiB: 500000},
		Plan:    types.PartitionPlan{EFISizeMiB: 1024, SwapSizeMiB: 32768, MainSizeMiB: 391208, ReservedSizeMiB: 75000},
		Env:     envStub{},
		Secrets: secret.Static("pw"),
	}
}

func TestPartitionStageRefusesMountedDevice(t *testing.T) {
	stage := Stages()[0]

	ctx := testContext()
	ctx.Env = envStub{mounts: []string{"/dev/nvme1n1p2", "proc", "/dev/zz0p3"}}
	err := stage.Check(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/dev/zz0p3")

	ctx.Env = envStub{mounts: []string{"/dev/nvme1n1p2", "proc"}}
	assert.NoError(t, stage.Check(ctx))
}

func TestStagesOrder(t *testing.T) {
	var names []string
	for _, s := range Stages() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"Partition", "Encrypt", "LVM-setup", "Format", "Mount", "Bootstrap"}, names)
}

func TestLVMStageUsesConfiguredRootSize(t *testing.T) {
	ctx := testContext()
	ctx.Conf.RootLVSize = "32GiB"
	ctx.Records = []*types.StageRecord{{
		Name:        "Encrypt",
		Status:      types.StageSucceeded,
		SideEffects: []string{"/dev/mapper/cryptlvm"},
	}}

	stage := Stages()[2]
	require.NoError(t, stage.Check(ctx))

	steps, err := stage.Build(ctx)
	require.NoError(t, err)
	require.Len(t, steps, 4)
	assert.Equal(t, []string{"-L", "32768M", "-n", "root", "vg0"}, steps[2].Inv.Args)
	assert.Equal(t, []string{"-l", "100%FREE", "-n", "home", "vg0"}, steps[3].Inv.Args)
}

func TestLVMStageRequiresOpenMapper(t *testing.T) {
	ctx := testContext()
	// No succeeded stage recorded the mapper: precondition violated.
	ctx.Records = []*types.StageRecord{{
		Name:        "Encrypt",
		Status:      types.StageFailed,
		SideEffects: []string{"/dev/mapper/cryptlvm"},
	}}
	assert.Error(t, Stages()[2].Check(ctx))
}

func TestMountStageRootBeforeChildren(t *testing.T) {
	ctx := testContext()
	steps, err := Stages()[4].Build(ctx)
	require.NoError(t, err)

	var mounts []string
	for _, s := range steps {
		if s.Inv.Path == "mount" {
			mounts = append(mounts, s.Inv.Args[1])
		}
	}
	require.Len(t, mounts, 3)
	assert.Equal(t, ctx.Conf.StagingRoot, mounts[0], "root mounts first")
}

func TestFormatStageDisablesJournal(t *testing.T) {
	ctx := testContext()
	steps, err := Stages()[3].Build(ctx)
	require.NoError(t, err)

	var ext4 int
	for _, s := range steps {
		if s.Inv.Path == "mkfs.ext4" {
			ext4++
			assert.Contains(t, s.Inv.Args, "^has_journal")
		}
	}
	assert.Equal(t, 2, ext4)
}

func TestBasePackagesByProfile(t *testing.T) {
	tests := []struct {
		name    string
		profile types.HardwareProfile
		want    []string
		absent  []string
	}{
		{
			name: "intel nvidia ethernet",
			profile: types.HardwareProfile{
				CPUVendor: types.CPUVendorIntel, GPUVendor: types.GPUVendorNvidia, NetworkMedium: types.MediumEthernet,
			},
			want:   []string{"base", "linux", "intel-ucode", "nvidia"},
			absent: []string{"amd-ucode", "iwd"},
		},
		{
			name: "amd wireless no gpu",
			profile: types.HardwareProfile{
				CPUVendor: types.CPUVendorAMD, GPUVendor: types.GPUVendorNone, NetworkMedium: types.MediumWireless,
			},
			want:   []string{"amd-ucode", "iwd"},
			absent: []string{"intel-ucode", "nvidia"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkgs := BasePackages(tt.profile)
			for _, p := range tt.want {
				assert.Contains(t, pkgs, p)
			}
			for _, p := range tt.absent {
				assert.NotContains(t, pkgs, p)
			}
		})
	}
}
