package commands

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/flowmailer/flowmailer-go/internal/constants"
	"github.com/flowmailer/flowmailer-go/pkg/flowmailer"
)

// NewTemplatesCommand creates the templates command group.
func NewTemplatesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "templates",
		Aliases: []string{"template"},
		Short:   "Manage templates",
	}

	cmd.AddCommand(newTemplatesListCommand())
	cmd.AddCommand(newTemplatesGetCommand())
	cmd.AddCommand(newTemplatesCreateCommand())
	cmd.AddCommand(newTemplatesDeleteCommand())

	return cmd
}

func newTemplatesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}

			templates, err := client.Templates().List(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list templates: %w", err)
			}

			return render(cmd.OutOrStdout(), templates, func(table *tablewriter.Table) {
				table.Header("ID", "Description", "MIME Type", "Engine")

				for _, template := range templates {
					_ = table.Append(template.ID, truncate(template.Description, constants.DescriptionDisplayLength),
						template.MimeType, template.TemplateEng)
				}
			})
		},
	}
}

func newTemplatesGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get TEMPLATE_ID",
		Short: "Show a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}

			template, err := client.Templates().Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get template: %w", err)
			}

			return render(cmd.OutOrStdout(), template, func(table *tablewriter.Table) {
				table.Header("Property", "Value")
				_ = table.Append("ID", template.ID)
				_ = table.Append("Description", template.Description)
				_ = table.Append("MIME Type", template.MimeType)
				_ = table.Append("Engine", template.TemplateEng)
				_ = table.Append("Data", truncate(template.Data, constants.DescriptionDisplayLength))
			})
		},
	}
}

func newTemplatesCreateCommand() *cobra.Command {
	var (
		dataFile string
		mimeType string
		engine   string
	)

	cmd := &cobra.Command{
		Use:   "create DESCRIPTION",
		Short: "Create a template from a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readTemplateFile(dataFile)
			if err != nil {
				return err
			}

			client, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}

			templateID, err := client.Templates().Create(cmd.Context(), &flowmailer.Template{
				Description: args[0],
				MimeType:    mimeType,
				TemplateEng: engine,
				Data:        data,
			})
			if err != nil {
				return fmt.Errorf("failed to create template: %w", err)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), templateID)

			return nil
		},
	}

	cmd.Flags().StringVarP(&dataFile, "file", "f", "", "template source file")
	cmd.Flags().StringVar(&mimeType, "mime-type", "text/html", "MIME type of the template")
	cmd.Flags().StringVar(&engine, "engine", "freemarker-2.3.20", "template engine")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func newTemplatesDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete TEMPLATE_ID",
		Short: "Delete a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}

			deleted, err := client.Templates().Delete(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to delete template: %w", err)
			}

			printDeleted(cmd, "template", args[0], deleted)

			return nil
		},
	}
}

func readTemplateFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to stat template file: %w", err)
	}

	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s", constants.ErrNotRegularFile, path)
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is supplied by the CLI user
	if err != nil {
		return "", fmt.Errorf("failed to read template file: %w", err)
	}

	return string(data), nil
}
