package constants

import "errors"

// Configuration errors.
var (
	ErrNoCredentials      = errors.New("no credentials configured, set account_id, client_id and client_secret or use FLOWMAILER_* variables")
	ErrNotATerminal       = errors.New("client secret must be configured when stdin is not a terminal")
	ErrInvalidOutput      = errors.New("invalid output format")
	ErrInvalidSortOrder   = errors.New("sort order must be ASC or DESC")
	ErrInvalidMessageType = errors.New("message type must be EMAIL, SMS or LETTER")
)

// Validation errors.
var (
	ErrRecipientRequired = errors.New("--to flag is required")
	ErrSenderRequired    = errors.New("--from flag is required")
)

// File system errors.
var (
	ErrNotRegularFile = errors.New("path is not a regular file")
)
