package hostenv

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/anvilos/ingot/config"
	"github.com/anvilos/ingot/types"
)

// Validate runs every precondition check and assembles the immutable
// HardwareProfile and DeviceSpec. Privilege is checked first and alone,
// since the other checks may themselves need elevated privilege; the
// remaining read-only checks run concurrently and their outcome is
// order-independent. Any failure is fatal and happens strictly before any
// mutation.
func Validate(ctx context.Context, env Environment, conf *config.Config, devicePath string) (types.HardwareProfile, types.DeviceSpec, error) {
	var profile types.HardwareProfile
	var device types.DeviceSpec

	if uid := env.EffectiveUID(); uid != 0 {
		return profile, device, &types.ValidationError{
			Kind:   types.CheckPrivilege,
			Detail: fmt.Sprintf("must run as root, effective uid is %d", uid),
		}
	}

	var mu sync.Mutex
	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		capacity, err := env.BlockDevice(devicePath)
		if err != nil {
			return &types.ValidationError{Kind: types.CheckDevice, Detail: err.Error()}
		}
		mu.Lock()
		device = types.DeviceSpec{Path: devicePath, TotalCapacityMiB: capacity}
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		mode := env.FirmwareMode()
		if mode != types.FirmwareUEFI {
			return &types.ValidationError{
				Kind:   types.CheckFirmware,
				Detail: fmt.Sprintf("UEFI firmware required, booted in %s mode", mode),
			}
		}
		mu.Lock()
		profile.FirmwareMode = mode
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		vendor, err := env.CPUVendor()
		if err != nil {
			return &types.ValidationError{Kind: types.CheckCPU, Detail: err.Error()}
		}
		if vendor != conf.RequiredCPUVendor {
			return &types.ValidationError{
				Kind:   types.CheckCPU,
				Detail: fmt.Sprintf("cpu vendor %q, requires %q", vendor, conf.RequiredCPUVendor),
			}
		}
		mu.Lock()
		profile.CPUVendor = vendor
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		vendors, err := env.GPUVendors()
		if err != nil {
			return &types.ValidationError{Kind: types.CheckGPU, Detail: err.Error()}
		}
		for _, v := range vendors {
			if v == conf.RequiredGPUVendor {
				mu.Lock()
				profile.GPUVendor = v
				mu.Unlock()
				return nil
			}
		}
		return &types.ValidationError{
			Kind:   types.CheckGPU,
			Detail: fmt.Sprintf("no %s display device on the pci bus", conf.RequiredGPUVendor),
		}
	})

	g.Go(func() error {
		medium, err := env.NetworkMedium()
		if err != nil {
			// A missing link does not block provisioning; the target
			// network unit just defaults to ethernet.
			medium = types.MediumEthernet
		}
		mu.Lock()
		profile.NetworkMedium = medium
		mu.Unlock()
		return nil
	})

	if err := g.Wait(); err != nil {
		var verr *types.ValidationError
		if errors.As(err, &verr) {
			return types.HardwareProfile{}, types.DeviceSpec{}, verr
		}
		return types.HardwareProfile{}, types.DeviceSpec{}, err
	}
	return profile, device, nil
}
