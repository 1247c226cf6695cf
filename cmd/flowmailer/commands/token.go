package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewTokenCommand creates the token command.
func NewTokenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Print an access token",
		Long:  "Obtain an OAuth2 access token with the configured client credentials and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}

			token, err := client.GetToken(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get token: %w", err)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), token)

			return nil
		},
	}
}
