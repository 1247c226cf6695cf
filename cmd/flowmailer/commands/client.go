package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/flowmailer/flowmailer-go/internal/constants"
	"github.com/flowmailer/flowmailer-go/pkg/flowmailer"
	"github.com/flowmailer/flowmailer-go/pkg/fmclient"
)

// Static errors for err113 compliance.
var (
	ErrUnknownConfigKey = errors.New("unknown configuration key")
	ErrInvalidDataPair  = errors.New("data must be given as key=value")
	ErrSecretNotStored  = errors.New("no client secret stored in keyring")
)

// CreateClient builds a client from flags, environment and config file.
// The client secret comes from configuration, then the system keyring, then
// a prompt when stdin is a terminal.
func CreateClient(ctx context.Context) (flowmailer.Client, error) {
	config := loadConfig()

	if config.AccountID == "" || config.ClientID == "" {
		return nil, constants.ErrNoCredentials
	}

	if config.ClientSecret == "" {
		secret, err := storedSecret(config.AccountID, config.ClientID)
		if err != nil {
			secret, err = promptSecret()
			if err != nil {
				return nil, err
			}
		}

		config.ClientSecret = secret
	}

	return newClient(ctx, config)
}

func newClient(ctx context.Context, config *Config) (flowmailer.Client, error) {
	clientConfig := &flowmailer.Config{
		APIEndpoint:  config.APIEndpoint,
		AuthEndpoint: config.AuthEndpoint,
		AccountID:    config.AccountID,
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		Scope:        config.Scope,
		RetryMax:     config.RetryMax,
		RateLimit:    config.RateLimit,
		CacheConfig:  config.cacheConfig(),
		UserAgent:    "flowmailer-cli",
	}

	if viper.GetBool("verbose") {
		clientConfig.Logger = &stderrLogger{}
		clientConfig.Debug = true
	}

	client, err := fmclient.New(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return client, nil
}

func promptSecret() (string, error) {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", constants.ErrNotATerminal
	}

	_, err := os.Stderr.WriteString("Client Secret: ")
	if err != nil {
		return "", fmt.Errorf("failed to write prompt: %w", err)
	}

	secretBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", fmt.Errorf("failed to read client secret: %w", err)
	}

	_, _ = os.Stderr.WriteString("\n")

	return strings.TrimSpace(string(secretBytes)), nil
}

// stderrLogger prints client log lines to stderr.
type stderrLogger struct{}

func (l *stderrLogger) log(level, msg string, fields map[string]interface{}) {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	var builder strings.Builder

	builder.WriteString(level)
	builder.WriteString(" ")
	builder.WriteString(msg)

	for _, key := range keys {
		fmt.Fprintf(&builder, " %s=%v", key, fields[key])
	}

	fmt.Fprintln(os.Stderr, builder.String())
}

func (l *stderrLogger) Debug(msg string, fields map[string]interface{}) { l.log("DEBUG", msg, fields) }
func (l *stderrLogger) Info(msg string, fields map[string]interface{})  { l.log("INFO", msg, fields) }
func (l *stderrLogger) Warn(msg string, fields map[string]interface{})  { l.log("WARN", msg, fields) }
func (l *stderrLogger) Error(msg string, fields map[string]interface{}) { l.log("ERROR", msg, fields) }
