// Package hostenv wraps the ambient host state the validator needs
// (privilege, devices, firmware, PCI bus) behind an explicit capability so
// tests can substitute a fake environment.
package hostenv

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/anvilos/ingot/types"
)

// Environment exposes read-only host facts. All methods are side-effect
// free queries.
type Environment interface {
	// EffectiveUID returns the effective user ID of this process.
	EffectiveUID() int
	// BlockDevice checks path is an existing block device and returns its
	// capacity in MiB.
	BlockDevice(path string) (int64, error)
	// FirmwareMode reports UEFI vs legacy BIOS.
	FirmwareMode() types.FirmwareMode
	// CPUVendor returns the CPU vendor identification string.
	CPUVendor() (types.CPUVendor, error)
	// GPUVendors lists the vendors of display-class PCI devices.
	GPUVendors() ([]types.GPUVendor, error)
	// NetworkMedium reports the medium of the first physical link.
	NetworkMedium() (types.NetworkMedium, error)
	// Mounts lists the source devices of currently mounted filesystems.
	Mounts() ([]string, error)
}

// System reads the live host via procfs and sysfs.
type System struct{}

var _ Environment = System{}

const (
	sysFirmwareEFI = "/sys/firmware/efi"
	sysBlock       = "/sys/class/block"
	sysNet         = "/sys/class/net"
	sysPCIDevices  = "/sys/bus/pci/devices"
	procCPUInfo    = "/proc/cpuinfo"
	procMounts     = "/proc/self/mounts"

	sectorSize = 512
)

func (System) EffectiveUID() int { return os.Geteuid() }

func (System) BlockDevice(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	mode := info.Mode()
	if mode&os.ModeDevice == 0 || mode&os.ModeCharDevice != 0 {
		return 0, fmt.Errorf("%s is not a block device", path)
	}
	// Sector count from sysfs; the size attribute is always in 512-byte
	// units regardless of the device's logical sector size.
	data, err := os.ReadFile(filepath.Join(sysBlock, filepath.Base(path), "size"))
	if err != nil {
		return 0, fmt.Errorf("read device size: %w", err)
	}
	sectors, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse device size: %w", err)
	}
	return sectors * sectorSize / (1 << 20), nil
}

func (System) FirmwareMode() types.FirmwareMode {
	if _, err := os.Stat(sysFirmwareEFI); err == nil {
		return types.FirmwareUEFI
	}
	return types.FirmwareBIOS
}

func (System) CPUVendor() (types.CPUVendor, error) {
	data, err := os.ReadFile(procCPUInfo)
	if err != nil {
		return "", fmt.Errorf("read cpuinfo: %w", err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, "vendor_id") {
			continue
		}
		if _, value, ok := strings.Cut(line, ":"); ok {
			return types.CPUVendor(strings.TrimSpace(value)), nil
		}
	}
	return "", fmt.Errorf("no vendor_id in %s", procCPUInfo)
}

// pciVendors maps PCI vendor IDs of display-class devices to GPU vendors.
var pciVendors = map[string]types.GPUVendor{
	"0x10de": types.GPUVendorNvidia,
	"0x1002": types.GPUVendorAMD,
	"0x8086": types.GPUVendorIntel,
}

func (System) GPUVendors() ([]types.GPUVendor, error) {
	entries, err := os.ReadDir(sysPCIDevices)
	if err != nil {
		return nil, fmt.Errorf("enumerate pci devices: %w", err)
	}
	var vendors []types.GPUVendor
	for _, e := range entries {
		dev := filepath.Join(sysPCIDevices, e.Name())
		class, err := os.ReadFile(filepath.Join(dev, "class"))
		if err != nil {
			continue
		}
		// 0x03xxxx is the PCI display controller class.
		if !strings.HasPrefix(strings.TrimSpace(string(class)), "0x03") {
			continue
		}
		vendor, err := os.ReadFile(filepath.Join(dev, "vendor"))
		if err != nil {
			continue
		}
		if v, ok := pciVendors[strings.TrimSpace(string(vendor))]; ok {
			vendors = append(vendors, v)
		}
	}
	return vendors, nil
}

func (System) Mounts() ([]string, error) {
	data, err := os.ReadFile(procMounts)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", procMounts, err)
	}
	return parseMountSources(data), nil
}

// parseMountSources extracts the source device (first field) of each
// mount table entry.
func parseMountSources(data []byte) []string {
	var sources []string
	for _, line := range strings.Split(string(data), "\n") {
		if fields := strings.Fields(line); len(fields) > 0 {
			sources = append(sources, fields[0])
		}
	}
	return sources
}

func (System) NetworkMedium() (types.NetworkMedium, error) {
	entries, err := os.ReadDir(sysNet)
	if err != nil {
		return "", fmt.Errorf("enumerate network links: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		if name == "lo" {
			continue
		}
		// Virtual links (bridges, veths) have no device symlink.
		if _, err := os.Stat(filepath.Join(sysNet, name, "device")); err != nil {
			continue
		}
		if _, err := os.Stat(filepath.Join(sysNet, name, "wireless")); err == nil {
			return types.MediumWireless, nil
		}
		return types.MediumEthernet, nil
	}
	return "", fmt.Errorf("no physical network link found")
}
