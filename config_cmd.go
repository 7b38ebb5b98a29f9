package main

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
)

// newConfigShowCmd prints the effective configuration after the full
// override chain, so users can see what the server would actually run with.
func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}

			enc := toml.NewEncoder(cmd.OutOrStdout())
			if err := enc.Encode(cfg); err != nil {
				return fmt.Errorf("encoding config: %w", err)
			}

			return nil
		},
	}
}
