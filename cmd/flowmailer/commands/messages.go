package commands

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/flowmailer/flowmailer-go/internal/constants"
	"github.com/flowmailer/flowmailer-go/pkg/flowmailer"
)

var sortOrders = []string{"ASC", "DESC"}

// NewMessagesCommand creates the messages command group.
func NewMessagesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "messages",
		Aliases: []string{"message", "msg"},
		Short:   "Submit and inspect messages",
	}

	cmd.AddCommand(newMessagesListCommand())
	cmd.AddCommand(newMessagesGetCommand())
	cmd.AddCommand(newMessagesEventsCommand())
	cmd.AddCommand(newMessagesSubmitCommand())

	return cmd
}

type listFlags struct {
	count int
	from  string
	until string
	flows []string
	sort  string
	all   bool
}

func (f *listFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.IntVar(&f.count, "count", constants.DefaultPageSize, "items per page")
	flags.StringVar(&f.from, "from", "", "start of the date range (RFC3339)")
	flags.StringVar(&f.until, "until", "", "end of the date range (RFC3339)")
	flags.StringSliceVar(&f.flows, "flow", nil, "only messages processed by these flow IDs")
	flags.StringVar(&f.sort, "sort", "", "sort order (ASC or DESC)")
	flags.BoolVar(&f.all, "all", false, "follow next-range until the last page")
}

func (f *listFlags) params() (*flowmailer.MessageListParams, error) {
	params := flowmailer.NewMessageListParams(f.count)
	params.FlowIDs = f.flows

	if f.sort != "" {
		order := strings.ToUpper(f.sort)
		if !slices.Contains(sortOrders, order) {
			return nil, fmt.Errorf("%w: %s", constants.ErrInvalidSortOrder, f.sort)
		}

		params.SortOrder = order
	}

	var err error

	params.From, err = parseTime(f.from)
	if err != nil {
		return nil, fmt.Errorf("invalid --from: %w", err)
	}

	params.Until, err = parseTime(f.until)
	if err != nil {
		return nil, fmt.Errorf("invalid --until: %w", err)
	}

	return params, nil
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}

	parsed, err := cast.ToTimeE(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing %q: %w", value, err)
	}

	return parsed, nil
}

// collect fetches one page, or every page when all is set.
func collect[T any](
	ctx context.Context,
	params *flowmailer.MessageListParams,
	all bool,
	list func(ctx context.Context, params *flowmailer.MessageListParams) (*flowmailer.Page[T], error),
) ([]T, *flowmailer.ReferenceRange, error) {
	fetch := func(ctx context.Context, rng flowmailer.ReferenceRange) (*flowmailer.Page[T], error) {
		next := *params
		next.Range = rng

		return list(ctx, &next)
	}

	if all {
		items, err := flowmailer.FetchAll(ctx, params.Range, fetch)

		return items, nil, err
	}

	page, err := fetch(ctx, params.Range)
	if err != nil {
		return nil, nil, err
	}

	return page.Items, page.NextRange, nil
}

func newMessagesListCommand() *cobra.Command {
	var flags listFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List messages",
		Long:  "List submitted messages, optionally within a date range or for specific flows",
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := flags.params()
			if err != nil {
				return err
			}

			client, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}

			messages, next, err := collect(cmd.Context(), params, flags.all, client.Messages().List)
			if err != nil {
				return fmt.Errorf("failed to list messages: %w", err)
			}

			err = render(cmd.OutOrStdout(), messages, func(table *tablewriter.Table) {
				table.Header("ID", "Type", "Status", "Recipient", "Subject", "Submitted")

				for _, message := range messages {
					recipient := constants.NotAvailable
					if message.Recipient != nil {
						recipient = message.Recipient.Address
					}

					submitted := constants.NotAvailable
					if message.Submitted != nil {
						submitted = message.Submitted.Format(time.RFC3339)
					}

					_ = table.Append(message.ID, message.MessageType, message.Status, recipient,
						truncate(message.Subject, constants.DescriptionDisplayLength), submitted)
				}
			})
			if err != nil {
				return err
			}

			if next != nil {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "More messages available, next range: %s\n", next)
			}

			return nil
		},
	}

	flags.register(cmd)

	return cmd
}

func newMessagesGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get MESSAGE_ID",
		Short: "Show a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}

			message, err := client.Messages().Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get message: %w", err)
			}

			return render(cmd.OutOrStdout(), message, func(table *tablewriter.Table) {
				table.Header("Property", "Value")
				_ = table.Append("ID", message.ID)
				_ = table.Append("Type", message.MessageType)
				_ = table.Append("Status", message.Status)
				_ = table.Append("Subject", valueOrDefault(message.Subject, constants.NotAvailable))

				if message.Sender != nil {
					_ = table.Append("Sender", message.Sender.Address)
				}

				if message.Recipient != nil {
					_ = table.Append("Recipient", message.Recipient.Address)
				}

				if message.Flow != nil {
					_ = table.Append("Flow", message.Flow.ID)
				}

				if message.Submitted != nil {
					_ = table.Append("Submitted", message.Submitted.Format(time.RFC3339))
				}
			})
		},
	}
}

func newMessagesEventsCommand() *cobra.Command {
	var flags listFlags

	cmd := &cobra.Command{
		Use:   "events [MESSAGE_ID]",
		Short: "List message events",
		Long:  "List the events of one message, or of the whole account when no message ID is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := flags.params()
			if err != nil {
				return err
			}

			client, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}

			list := client.MessageEvents().List
			if len(args) == 1 {
				messageID := args[0]
				list = func(ctx context.Context, params *flowmailer.MessageListParams) (*flowmailer.Page[flowmailer.MessageEvent], error) {
					return client.Messages().Events(ctx, messageID, params)
				}
			}

			events, next, err := collect(cmd.Context(), params, flags.all, list)
			if err != nil {
				return fmt.Errorf("failed to list message events: %w", err)
			}

			err = render(cmd.OutOrStdout(), events, func(table *tablewriter.Table) {
				table.Header("ID", "Message", "Type", "Received", "Snippet")

				for _, event := range events {
					received := constants.NotAvailable
					if event.Received != nil {
						received = event.Received.Format(time.RFC3339)
					}

					_ = table.Append(event.ID, event.MessageID, event.Type, received,
						truncate(event.Snippet, constants.DescriptionDisplayLength))
				}
			})
			if err != nil {
				return err
			}

			if next != nil {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "More events available, next range: %s\n", next)
			}

			return nil
		},
	}

	flags.register(cmd)

	return cmd
}

type submitFlags struct {
	messageType  string
	from         string
	fromName     string
	to           string
	toName       string
	subject      string
	text         string
	html         string
	flowSelector string
	tags         []string
	data         []string
}

func (f *submitFlags) message() (*flowmailer.SubmitMessage, error) {
	if f.from == "" {
		return nil, constants.ErrSenderRequired
	}

	if f.to == "" {
		return nil, constants.ErrRecipientRequired
	}

	messageType := flowmailer.MessageType(strings.ToUpper(f.messageType))
	if !slices.Contains(
		[]flowmailer.MessageType{flowmailer.MessageTypeEmail, flowmailer.MessageTypeSMS, flowmailer.MessageTypeLetter},
		messageType,
	) {
		return nil, fmt.Errorf("%w: %s", constants.ErrInvalidMessageType, f.messageType)
	}

	message := &flowmailer.SubmitMessage{
		MessageType:      messageType,
		SenderAddress:    f.from,
		SenderName:       f.fromName,
		RecipientAddress: f.to,
		RecipientName:    f.toName,
		Subject:          f.subject,
		Text:             f.text,
		HTML:             f.html,
		FlowSelector:     f.flowSelector,
		Tags:             f.tags,
	}

	if len(f.data) > 0 {
		message.Data = make(map[string]any, len(f.data))

		for _, pair := range f.data {
			key, value, ok := strings.Cut(pair, "=")
			if !ok || key == "" {
				return nil, fmt.Errorf("%w: %q", ErrInvalidDataPair, pair)
			}

			message.Data[key] = value
		}
	}

	return message, nil
}

func newMessagesSubmitCommand() *cobra.Command {
	var flags submitFlags

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a message",
		Long:  "Submit a message for processing and print the ID of the created message",
		Example: `  flowmailer messages submit --from noreply@example.com --to user@example.com \
    --subject Welcome --text "Hello!" --data name=Jane`,
		RunE: func(cmd *cobra.Command, args []string) error {
			message, err := flags.message()
			if err != nil {
				return err
			}

			client, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}

			messageID, err := client.Messages().Submit(cmd.Context(), message)
			if err != nil {
				return fmt.Errorf("failed to submit message: %w", err)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), messageID)

			return nil
		},
	}

	cmdFlags := cmd.Flags()
	cmdFlags.StringVar(&flags.messageType, "type", string(flowmailer.MessageTypeEmail), "message type (EMAIL, SMS, LETTER)")
	cmdFlags.StringVar(&flags.from, "from", "", "sender address")
	cmdFlags.StringVar(&flags.fromName, "from-name", "", "sender name")
	cmdFlags.StringVar(&flags.to, "to", "", "recipient address")
	cmdFlags.StringVar(&flags.toName, "to-name", "", "recipient name")
	cmdFlags.StringVar(&flags.subject, "subject", "", "message subject")
	cmdFlags.StringVar(&flags.text, "text", "", "plain text body")
	cmdFlags.StringVar(&flags.html, "html", "", "HTML body")
	cmdFlags.StringVar(&flags.flowSelector, "flow-selector", "", "flow selector")
	cmdFlags.StringSliceVar(&flags.tags, "tag", nil, "message tags")
	cmdFlags.StringArrayVar(&flags.data, "data", nil, "template data as key=value, repeatable")

	return cmd
}
