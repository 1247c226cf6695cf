package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// ShortHTTPTimeout is used for token requests.
	ShortHTTPTimeout = 10 * time.Second
)

// Retry limits.
const (
	// DefaultRetryMax is the retry count the CLI uses.
	DefaultRetryMax = 3

	// DefaultRetryWaitMin is the minimum wait time between retries.
	DefaultRetryWaitMin = 1 * time.Second

	// ExtendedRetryWaitMax is the maximum wait time between retries.
	ExtendedRetryWaitMax = 30 * time.Second
)

// Pagination and display limits.
const (
	// DefaultPageSize is the number of items requested per page.
	DefaultPageSize = 20

	// DescriptionDisplayLength truncates descriptions in tables.
	DescriptionDisplayLength = 60
)

// Display constants.
const (
	// NotAvailable is used when information is not available.
	NotAvailable = "N/A"

	// MaskedSecret is used to hide sensitive information.
	MaskedSecret = "***"
)

// Format constants.
const (
	// FormatTable for table output format.
	FormatTable = "table"

	// FormatJSON for JSON output format.
	FormatJSON = "json"

	// FormatYAML for YAML output format.
	FormatYAML = "yaml"

	// JSONIndentSize is the number of spaces for JSON indentation.
	JSONIndentSize = 2
)

// Sort order constants.
const (
	// SortOrderAscending for ascending sort.
	SortOrderAscending = "ASC"

	// SortOrderDescending for descending sort.
	SortOrderDescending = "DESC"
)

// API path constants.
const (
	// APIPathMessages lists the messages of an account.
	APIPathMessages = "/{accountId}/messages"

	// APIPathMessage addresses one message.
	APIPathMessage = "/{accountId}/messages/{messageId}"

	// APIPathMessageSubmit submits a message.
	APIPathMessageSubmit = "/{accountId}/messages/submit"

	// APIPathMessageEvents lists the events of one message.
	APIPathMessageEvents = "/{accountId}/messages/{messageId}/message_events"

	// APIPathAccountEvents lists the events of an account.
	APIPathAccountEvents = "/{accountId}/message_events"

	// APIPathFlows lists flows.
	APIPathFlows = "/{accountId}/flows"

	// APIPathFlow addresses one flow.
	APIPathFlow = "/{accountId}/flows/{flowId}"

	// APIPathSenderDomains lists sender domains.
	APIPathSenderDomains = "/{accountId}/sender_domains"

	// APIPathSenderDomain addresses one sender domain.
	APIPathSenderDomain = "/{accountId}/sender_domains/{domainId}"

	// APIPathSenderDomainValidate validates a sender domain without saving it.
	APIPathSenderDomainValidate = "/{accountId}/sender_domains/validate"

	// APIPathTemplates lists templates.
	APIPathTemplates = "/{accountId}/templates"

	// APIPathTemplate addresses one template.
	APIPathTemplate = "/{accountId}/templates/{templateId}"
)
