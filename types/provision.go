package types

import "fmt"

// CPUVendor is the vendor identification string reported by the CPU.
type CPUVendor string

const (
	CPUVendorIntel CPUVendor = "GenuineIntel"
	CPUVendorAMD   CPUVendor = "AuthenticAMD"
)

// GPUVendor identifies a discrete GPU vendor found on the PCI bus.
type GPUVendor string

const (
	GPUVendorNvidia GPUVendor = "nvidia"
	GPUVendorAMD    GPUVendor = "amd"
	GPUVendorIntel  GPUVendor = "intel"
	GPUVendorNone   GPUVendor = "none"
)

// FirmwareMode is the boot firmware interface exposed by the host.
type FirmwareMode string

const (
	FirmwareBIOS FirmwareMode = "bios"
	FirmwareUEFI FirmwareMode = "uefi"
)

// NetworkMedium is the physical medium of the primary network link.
type NetworkMedium string

const (
	MediumEthernet NetworkMedium = "ethernet"
	MediumWireless NetworkMedium = "wireless"
)

// HardwareProfile captures the host facts the sequencer conditions on.
// Established once by the validator from live system queries and never
// mutated afterwards.
type HardwareProfile struct {
	CPUVendor     CPUVendor     `json:"cpu_vendor"`
	GPUVendor     GPUVendor     `json:"gpu_vendor"`
	FirmwareMode  FirmwareMode  `json:"firmware_mode"`
	NetworkMedium NetworkMedium `json:"network_medium"`
}

// DeviceSpec describes the target block device. Capacity is read once and
// is the sole input to the layout planner.
type DeviceSpec struct {
	Path             string `json:"path"`
	TotalCapacityMiB int64  `json:"total_capacity_mib"`
}

// Partition returns the device node for partition n, handling the "p"
// separator used by nvme/mmc device names.
func (d DeviceSpec) Partition(n int) string {
	last := d.Path[len(d.Path)-1]
	if last >= '0' && last <= '9' {
		return fmt.Sprintf("%sp%d", d.Path, n)
	}
	return fmt.Sprintf("%s%d", d.Path, n)
}

// PartitionPlan is the size plan derived from DeviceSpec capacity.
// Frozen once computed and confirmed; never recomputed mid-run.
type PartitionPlan struct {
	EFISizeMiB      int64 `json:"efi_size_mib"`
	SwapSizeMiB     int64 `json:"swap_size_mib"`
	MainSizeMiB     int64 `json:"main_size_mib"`
	ReservedSizeMiB int64 `json:"reserved_size_mib"`
}

// StageStatus is the lifecycle state of one provisioning stage.
type StageStatus string

const (
	StagePending   StageStatus = "pending"
	StageConfirmed StageStatus = "confirmed" // operator accepted the gate
	StageRunning   StageStatus = "running"
	StageSucceeded StageStatus = "succeeded"
	StageFailed    StageStatus = "failed"
)

// StageRecord tracks one stage's progress. SideEffects is the ordered list
// of resources the stage has created so far (partition nodes, mapper names,
// volume names) and is the authoritative record of what a manual cleanup
// would have to reverse. Succeeded and failed are terminal; no stage is
// retried.
type StageRecord struct {
	Name        string      `json:"name"`
	Status      StageStatus `json:"status"`
	SideEffects []string    `json:"side_effects,omitempty"`
}
