package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zalando/go-keyring"

	"github.com/flowmailer/flowmailer-go/internal/constants"
)

// keyringService is the service name of keyring entries.
const keyringService = "flowmailer"

func keyringUser(accountID, clientID string) string {
	return accountID + "/" + clientID
}

func storedSecret(accountID, clientID string) (string, error) {
	secret, err := keyring.Get(keyringService, keyringUser(accountID, clientID))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrSecretNotStored
		}

		return "", fmt.Errorf("keyring error: %w", err)
	}

	return secret, nil
}

// NewLoginCommand creates the login command.
func NewLoginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Store the client secret in the system keyring",
		Long: "Prompt for the client secret of the configured account and client ID, verify it " +
			"against the token endpoint and store it in the system keyring",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()
			if config.AccountID == "" || config.ClientID == "" {
				return constants.ErrNoCredentials
			}

			if config.ClientSecret == "" {
				secret, err := promptSecret()
				if err != nil {
					return err
				}

				config.ClientSecret = secret
			}

			client, err := newClient(cmd.Context(), config)
			if err != nil {
				return err
			}

			_, err = client.GetToken(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to verify credentials: %w", err)
			}

			err = keyring.Set(keyringService, keyringUser(config.AccountID, config.ClientID), config.ClientSecret)
			if err != nil {
				return fmt.Errorf("keyring error: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Stored client secret for %s in the system keyring\n",
				keyringUser(config.AccountID, config.ClientID))

			return nil
		},
	}
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the client secret from the system keyring",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()
			if config.AccountID == "" || config.ClientID == "" {
				return constants.ErrNoCredentials
			}

			err := keyring.Delete(keyringService, keyringUser(config.AccountID, config.ClientID))
			if err != nil {
				if errors.Is(err, keyring.ErrNotFound) {
					return ErrSecretNotStored
				}

				return fmt.Errorf("keyring error: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed client secret for %s\n",
				keyringUser(config.AccountID, config.ClientID))

			return nil
		},
	}
}
