package commands

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/flowmailer/flowmailer-go/internal/constants"
	"github.com/flowmailer/flowmailer-go/pkg/flowmailer"
)

// NewSenderDomainsCommand creates the sender-domains command group.
func NewSenderDomainsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sender-domains",
		Aliases: []string{"domains", "sender-domain"},
		Short:   "Manage sender domains",
	}

	cmd.AddCommand(newSenderDomainsListCommand())
	cmd.AddCommand(newSenderDomainsGetCommand())
	cmd.AddCommand(newSenderDomainsCreateCommand())
	cmd.AddCommand(newSenderDomainsValidateCommand())
	cmd.AddCommand(newSenderDomainsDeleteCommand())

	return cmd
}

func newSenderDomainsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sender domains",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}

			domains, err := client.SenderDomains().List(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list sender domains: %w", err)
			}

			return render(cmd.OutOrStdout(), domains, func(table *tablewriter.Table) {
				table.Header("ID", "Domain", "Return Path", "Web Domain", "DNS Records")

				for _, domain := range domains {
					_ = table.Append(domain.ID, domain.SenderDomain, domain.ReturnPath,
						valueOrDefault(domain.WebDomain, constants.NotAvailable), cast.ToString(len(domain.DNSRecords)))
				}
			})
		},
	}
}

func newSenderDomainsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get DOMAIN_ID",
		Short: "Show a sender domain and its DNS records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}

			domain, err := client.SenderDomains().Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get sender domain: %w", err)
			}

			return renderDNSRecords(cmd, domain)
		},
	}
}

func newSenderDomainsCreateCommand() *cobra.Command {
	var returnPath, webDomain string

	cmd := &cobra.Command{
		Use:   "create DOMAIN",
		Short: "Create a sender domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}

			domainID, err := client.SenderDomains().Create(cmd.Context(), &flowmailer.SenderDomain{
				SenderDomain: args[0],
				ReturnPath:   returnPath,
				WebDomain:    webDomain,
			})
			if err != nil {
				return fmt.Errorf("failed to create sender domain: %w", err)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), domainID)

			return nil
		},
	}

	cmd.Flags().StringVar(&returnPath, "return-path", "", "return path domain")
	cmd.Flags().StringVar(&webDomain, "web-domain", "", "web domain for online links")

	return cmd
}

func newSenderDomainsValidateCommand() *cobra.Command {
	var returnPath, webDomain string

	cmd := &cobra.Command{
		Use:   "validate DOMAIN",
		Short: "Validate the DNS setup of a sender domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}

			domain, err := client.SenderDomains().Validate(cmd.Context(), &flowmailer.SenderDomain{
				SenderDomain: args[0],
				ReturnPath:   returnPath,
				WebDomain:    webDomain,
			})
			if err != nil {
				return fmt.Errorf("failed to validate sender domain: %w", err)
			}

			return renderDNSRecords(cmd, domain)
		},
	}

	cmd.Flags().StringVar(&returnPath, "return-path", "", "return path domain")
	cmd.Flags().StringVar(&webDomain, "web-domain", "", "web domain for online links")

	return cmd
}

func newSenderDomainsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete DOMAIN_ID",
		Short: "Delete a sender domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}

			deleted, err := client.SenderDomains().Delete(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to delete sender domain: %w", err)
			}

			printDeleted(cmd, "sender domain", args[0], deleted)

			return nil
		},
	}
}

func renderDNSRecords(cmd *cobra.Command, domain *flowmailer.SenderDomain) error {
	return render(cmd.OutOrStdout(), domain, func(table *tablewriter.Table) {
		table.Header("Name", "Type", "Value", "Status", "Errors")

		for _, record := range domain.DNSRecords {
			_ = table.Append(record.Name, record.Type, truncate(record.Value, constants.DescriptionDisplayLength),
				valueOrDefault(record.Status, constants.NotAvailable), strings.Join(record.Errors, "; "))
		}
	})
}
