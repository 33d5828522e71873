// Package layout computes the partition size plan from device capacity.
package layout

import (
	"bytes"
	"fmt"
	"text/tabwriter"

	units "github.com/docker/go-units"

	"github.com/anvilos/ingot/config"
	"github.com/anvilos/ingot/types"
)

// Plan derives the partition plan from device capacity. Pure and
// deterministic: fixed EFI and swap sizes off the top, usable range capped
// at config.UsableRatio of capacity, main gets the rest of the usable
// range, the remainder is reserved headroom. All arithmetic is integer MiB
// with floor semantics so the plan can never exceed physical capacity.
func Plan(capacityMiB int64, conf *config.Config) (types.PartitionPlan, error) {
	// Integer arithmetic == floor(capacity * UsablePercent/100).
	usable := capacityMiB * config.UsablePercent / 100
	main := usable - conf.EFISizeMiB - conf.SwapSizeMiB
	if main <= 0 {
		return types.PartitionPlan{}, &types.PlanError{
			CapacityMiB: capacityMiB,
			Err:         types.ErrInsufficientCapacity,
		}
	}
	return types.PartitionPlan{
		EFISizeMiB:      conf.EFISizeMiB,
		SwapSizeMiB:     conf.SwapSizeMiB,
		MainSizeMiB:     main,
		ReservedSizeMiB: capacityMiB - usable,
	}, nil
}

func human(mib int64) string {
	return units.HumanSize(float64(mib) * units.MiB)
}

// Render formats the confirmed-to-be-destroyed plan for the operator. The
// journal note is part of the contract: root and home are created without
// an ext4 journal, trading crash consistency for throughput, and the
// operator must see that before accepting.
func Render(device types.DeviceSpec, plan types.PartitionPlan, conf *config.Config) string {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 8, 2, ' ', 0)
	fmt.Fprintf(w, "device\t%s\t(%s)\n", device.Path, human(device.TotalCapacityMiB))
	fmt.Fprintf(w, "%s\tEFI system\t%s\n", device.Partition(1), human(plan.EFISizeMiB))
	fmt.Fprintf(w, "%s\tswap\t%s\n", device.Partition(2), human(plan.SwapSizeMiB))
	fmt.Fprintf(w, "%s\tLUKS (%s + %s)\t%s\n",
		device.Partition(3), conf.VGName, conf.MapperName, human(plan.MainSizeMiB))
	fmt.Fprintf(w, "unallocated\theadroom\t%s\n", human(plan.ReservedSizeMiB))
	_ = w.Flush()
	buf.WriteString("\nroot and home filesystems are created with the ext4 journal disabled:\n")
	buf.WriteString("higher throughput, weaker crash-consistency guarantees.\n")
	return buf.String()
}
