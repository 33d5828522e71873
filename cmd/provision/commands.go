package provision

import "github.com/spf13/cobra"

// Actions defines the provisioning operations.
type Actions interface {
	Run(cmd *cobra.Command, args []string) error
	Plan(cmd *cobra.Command, args []string) error
	Validate(cmd *cobra.Command, args []string) error
}

// Command builds the "provision" parent command with all subcommands.
func Command(h Actions) *cobra.Command {
	provisionCmd := &cobra.Command{
		Use:   "provision",
		Short: "Provision a bare-metal host onto a block device",
	}

	runCmd := &cobra.Command{
		Use:   "run DEVICE",
		Short: "Run the full gated provisioning sequence (DESTRUCTIVE)",
		Long: "Drives DEVICE through partitioning, encryption, LVM, formatting,\n" +
			"mounting, bootstrap and target configuration. Every destructive\n" +
			"step waits for explicit confirmation; declining aborts the run.",
		Args: cobra.ExactArgs(1),
		RunE: h.Run,
	}

	planCmd := &cobra.Command{
		Use:   "plan DEVICE",
		Short: "Validate and print the partition plan without touching the device",
		Args:  cobra.ExactArgs(1),
		RunE:  h.Plan,
	}

	validateCmd := &cobra.Command{
		Use:   "validate DEVICE",
		Short: "Run the precondition checks only",
		Args:  cobra.ExactArgs(1),
		RunE:  h.Validate,
	}

	provisionCmd.AddCommand(runCmd, planCmd, validateCmd)
	return provisionCmd
}
