package others

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anvilos/ingot/version"
)

type Handler struct{}

func (Handler) Version(_ *cobra.Command, _ []string) error {
	fmt.Print(version.String())
	return nil
}
