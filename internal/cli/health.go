package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opentelekomcloud-infra/giji/internal/config"
)

// newHealthCmd is the in-process self-check the container health probe
// runs. It parses the configuration without validating credentials and
// never touches the network, so it stays green while the deployment is
// still waiting for Vault secrets.
func newHealthCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "In-process self-check for the container health probe",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if _, err := config.Load(cfgFile); err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if !quiet {
				fmt.Println("OK")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&quiet, "quiet", false, "suppress output")
	return cmd
}
