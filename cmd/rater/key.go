package main

import (
	"fmt"

	"authenticity-survey/internal/keys"

	"github.com/spf13/cobra"
)

func keyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "key",
		Short: "Print a freshly issued verification key",
		Long:  `Print a key from the configured issuer without starting a session. Useful for checking key settings.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			issuer, err := keys.NewIssuer(cfg.IssuerConfig())
			if err != nil {
				return err
			}
			key, err := issuer.Issue()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
}
