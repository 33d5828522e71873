package sequence

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/anvilos/ingot/runner"
	"github.com/anvilos/ingot/types"
)

// Stages returns the provisioning stages in their mandatory order.
func Stages() []Stage {
	return []Stage{
		partitionStage(),
		encryptStage(),
		lvmStage(),
		formatStage(),
		mountStage(),
		bootstrapStage(),
	}
}

// rootLV and homeLV return the logical volume device paths.
func rootLV(ctx *Context) string { return fmt.Sprintf("/dev/%s/root", ctx.Conf.VGName) }
func homeLV(ctx *Context) string { return fmt.Sprintf("/dev/%s/home", ctx.Conf.VGName) }

func mapperPath(ctx *Context) string { return "/dev/mapper/" + ctx.Conf.MapperName }

func partitionStage() Stage {
	return Stage{
		Name:   "Partition",
		Intent: "write a new GPT with EFI, swap and main partitions (destroys all existing data)",
		Check: func(ctx *Context) error {
			sources, err := ctx.Env.Mounts()
			if err != nil {
				return fmt.Errorf("read mount table: %w", err)
			}
			for _, src := range sources {
				if strings.HasPrefix(src, ctx.Device.Path) {
					return fmt.Errorf("%s has mounted filesystems (%s)", ctx.Device.Path, src)
				}
			}
			return nil
		},
		Build: func(ctx *Context) ([]Step, error) {
			dev := ctx.Device.Path
			return []Step{
				{Inv: runner.Invocation{Path: "sgdisk", Args: []string{"--zap-all", dev}}},
				{
					Inv: runner.Invocation{Path: "sgdisk", Args: []string{
						fmt.Sprintf("--new=1:0:+%dM", ctx.Plan.EFISizeMiB),
						"--typecode=1:ef00", "--change-name=1:EFI", dev,
					}},
					Effects: []string{ctx.Device.Partition(1)},
				},
				{
					Inv: runner.Invocation{Path: "sgdisk", Args: []string{
						fmt.Sprintf("--new=2:0:+%dM", ctx.Plan.SwapSizeMiB),
						"--typecode=2:8200", "--change-name=2:swap", dev,
					}},
					Effects: []string{ctx.Device.Partition(2)},
				},
				{
					Inv: runner.Invocation{Path: "sgdisk", Args: []string{
						fmt.Sprintf("--new=3:0:+%dM", ctx.Plan.MainSizeMiB),
						"--typecode=3:8309", "--change-name=3:main", dev,
					}},
					Effects: []string{ctx.Device.Partition(3)},
				},
				{Inv: runner.Invocation{Path: "partprobe", Args: []string{dev}}},
			}, nil
		},
	}
}

func encryptStage() Stage {
	return Stage{
		Name:   "Encrypt",
		Intent: "create a LUKS2 volume on the main partition and open it",
		Build: func(ctx *Context) ([]Step, error) {
			passphrase, err := ctx.Secrets.Secret("LUKS passphrase")
			if err != nil {
				return nil, fmt.Errorf("obtain passphrase: %w", err)
			}
			main := ctx.Device.Partition(3)
			return []Step{
				{
					Inv: runner.Invocation{
						Path:  "cryptsetup",
						Args:  []string{"--batch-mode", "luksFormat", "--type", "luks2", "--key-file=-", main},
						Input: passphrase,
					},
					Effects: []string{"luks2 header on " + main},
				},
				{
					Inv: runner.Invocation{
						Path:  "cryptsetup",
						Args:  []string{"open", "--key-file=-", main, ctx.Conf.MapperName},
						Input: passphrase,
					},
					Effects: []string{mapperPath(ctx)},
				},
			}, nil
		},
	}
}

func lvmStage() Stage {
	return Stage{
		Name:   "LVM-setup",
		Intent: "create the physical volume, volume group, root and home logical volumes",
		Check: func(ctx *Context) error {
			// The mapped device must be open, i.e. recorded as a side
			// effect of a succeeded stage.
			for _, r := range ctx.Records {
				if r.Status != types.StageSucceeded {
					continue
				}
				for _, effect := range r.SideEffects {
					if effect == mapperPath(ctx) {
						return nil
					}
				}
			}
			return fmt.Errorf("mapped device %s not open", mapperPath(ctx))
		},
		Build: func(ctx *Context) ([]Step, error) {
			rootMiB, err := ctx.Conf.RootLVSizeMiB()
			if err != nil {
				return nil, err
			}
			mapper := mapperPath(ctx)
			vg := ctx.Conf.VGName
			return []Step{
				{
					Inv:     runner.Invocation{Path: "pvcreate", Args: []string{mapper}},
					Effects: []string{"pv " + mapper},
				},
				{
					Inv:     runner.Invocation{Path: "vgcreate", Args: []string{vg, mapper}},
					Effects: []string{"vg " + vg},
				},
				{
					Inv:     runner.Invocation{Path: "lvcreate", Args: []string{"-L", fmt.Sprintf("%dM", rootMiB), "-n", "root", vg}},
					Effects: []string{rootLV(ctx)},
				},
				{
					Inv:     runner.Invocation{Path: "lvcreate", Args: []string{"-l", "100%FREE", "-n", "home", vg}},
					Effects: []string{homeLV(ctx)},
				},
			}, nil
		},
	}
}

func formatStage() Stage {
	return Stage{
		Name:   "Format",
		Intent: "create the EFI, swap, root and home filesystems (root and home without an ext4 journal)",
		Build: func(ctx *Context) ([]Step, error) {
			return []Step{
				{
					Inv:     runner.Invocation{Path: "mkfs.fat", Args: []string{"-F32", "-n", "EFI", ctx.Device.Partition(1)}},
					Effects: []string{"vfat on " + ctx.Device.Partition(1)},
				},
				{
					Inv:     runner.Invocation{Path: "mkswap", Args: []string{ctx.Device.Partition(2)}},
					Effects: []string{"swap on " + ctx.Device.Partition(2)},
				},
				// Journal disabled on the data volumes: throughput over
				// crash consistency. The trade-off is surfaced to the
				// operator in the plan summary.
				{
					Inv:     runner.Invocation{Path: "mkfs.ext4", Args: []string{"-F", "-O", "^has_journal", "-L", "root", rootLV(ctx)}},
					Effects: []string{"ext4 on " + rootLV(ctx)},
				},
				{
					Inv:     runner.Invocation{Path: "mkfs.ext4", Args: []string{"-F", "-O", "^has_journal", "-L", "home", homeLV(ctx)}},
					Effects: []string{"ext4 on " + homeLV(ctx)},
				},
			}, nil
		},
	}
}

func mountStage() Stage {
	return Stage{
		Name:   "Mount",
		Intent: "assemble the staging root hierarchy and enable swap",
		Build: func(ctx *Context) ([]Step, error) {
			staging := ctx.Conf.StagingRoot
			// Root strictly before its children.
			return []Step{
				{Inv: runner.Invocation{Path: "mkdir", Args: []string{"-p", staging}}},
				{
					Inv:     runner.Invocation{Path: "mount", Args: []string{rootLV(ctx), staging}},
					Effects: []string{"mount " + staging},
				},
				{Inv: runner.Invocation{Path: "mkdir", Args: []string{"-p", filepath.Join(staging, "boot"), filepath.Join(staging, "home")}}},
				{
					Inv:     runner.Invocation{Path: "mount", Args: []string{ctx.Device.Partition(1), filepath.Join(staging, "boot")}},
					Effects: []string{"mount " + filepath.Join(staging, "boot")},
				},
				{
					Inv:     runner.Invocation{Path: "mount", Args: []string{homeLV(ctx), filepath.Join(staging, "home")}},
					Effects: []string{"mount " + filepath.Join(staging, "home")},
				},
				{
					Inv:     runner.Invocation{Path: "swapon", Args: []string{ctx.Device.Partition(2)}},
					Effects: []string{"swap enabled on " + ctx.Device.Partition(2)},
				},
			}, nil
		},
	}
}

// BasePackages returns the bootstrap package set for the given profile:
// the fixed base plus CPU microcode and the GPU stack.
func BasePackages(profile types.HardwareProfile) []string {
	pkgs := []string{"base", "linux", "linux-firmware", "lvm2", "mkinitcpio", "e2fsprogs", "dosfstools"}
	switch profile.CPUVendor {
	case types.CPUVendorIntel:
		pkgs = append(pkgs, "intel-ucode")
	case types.CPUVendorAMD:
		pkgs = append(pkgs, "amd-ucode")
	}
	if profile.GPUVendor == types.GPUVendorNvidia {
		pkgs = append(pkgs, "nvidia", "nvidia-utils")
	}
	if profile.NetworkMedium == types.MediumWireless {
		pkgs = append(pkgs, "iwd")
	}
	return pkgs
}

func bootstrapStage() Stage {
	return Stage{
		Name:   "Bootstrap",
		Intent: "populate the staging root with the base package set (long-running)",
		Build: func(ctx *Context) ([]Step, error) {
			args := append([]string{"-K", ctx.Conf.StagingRoot}, BasePackages(ctx.Profile)...)
			return []Step{
				{
					Inv:     runner.Invocation{Path: "pacstrap", Args: args},
					Effects: []string{"base system in " + ctx.Conf.StagingRoot},
				},
			}, nil
		},
	}
}
