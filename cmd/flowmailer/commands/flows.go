package commands

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/flowmailer/flowmailer-go/internal/constants"
	"github.com/flowmailer/flowmailer-go/pkg/flowmailer"
)

// NewFlowsCommand creates the flows command group.
func NewFlowsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "flows",
		Aliases: []string{"flow"},
		Short:   "Manage flows",
	}

	cmd.AddCommand(newFlowsListCommand())
	cmd.AddCommand(newFlowsGetCommand())
	cmd.AddCommand(newFlowsCreateCommand())
	cmd.AddCommand(newFlowsDeleteCommand())

	return cmd
}

func newFlowsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List flows",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}

			flows, err := client.Flows().List(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list flows: %w", err)
			}

			return render(cmd.OutOrStdout(), flows, func(table *tablewriter.Table) {
				table.Header("ID", "Description", "Template", "Steps")

				for _, flow := range flows {
					_ = table.Append(flow.ID, truncate(flow.Description, constants.DescriptionDisplayLength),
						valueOrDefault(flow.TemplateID, constants.NotAvailable), cast.ToString(len(flow.Steps)))
				}
			})
		},
	}
}

func newFlowsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get FLOW_ID",
		Short: "Show a flow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}

			flow, err := client.Flows().Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get flow: %w", err)
			}

			return render(cmd.OutOrStdout(), flow, func(table *tablewriter.Table) {
				table.Header("Step", "Type", "Template")

				for _, step := range flow.Steps {
					template := constants.NotAvailable
					if step.Template != nil {
						template = step.Template.ID
					}

					_ = table.Append(valueOrDefault(step.ID, constants.NotAvailable), step.Type, template)
				}
			})
		},
	}
}

func newFlowsCreateCommand() *cobra.Command {
	var templateID string

	cmd := &cobra.Command{
		Use:   "create DESCRIPTION",
		Short: "Create a flow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}

			flowID, err := client.Flows().Create(cmd.Context(), &flowmailer.Flow{
				Description: args[0],
				TemplateID:  templateID,
			})
			if err != nil {
				return fmt.Errorf("failed to create flow: %w", err)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), flowID)

			return nil
		},
	}

	cmd.Flags().StringVar(&templateID, "template", "", "template ID used by the flow")

	return cmd
}

func newFlowsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete FLOW_ID",
		Short: "Delete a flow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}

			deleted, err := client.Flows().Delete(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to delete flow: %w", err)
			}

			printDeleted(cmd, "flow", args[0], deleted)

			return nil
		},
	}
}

func printDeleted(cmd *cobra.Command, kind, id string, deleted bool) {
	if deleted {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s %s\n", kind, id)
	} else {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s was not deleted\n", kind, id)
	}
}
