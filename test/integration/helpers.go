//go:build integration

package integration

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowmailer/flowmailer-go/pkg/flowmailer"
	"github.com/flowmailer/flowmailer-go/pkg/fmclient"
)

// TestConfig holds configuration for integration tests.
type TestConfig struct {
	APIEndpoint  string
	AuthEndpoint string
	AccountID    string
	ClientID     string
	ClientSecret string
	Sender       string
	Recipient    string
	Verbose      bool
}

// LoadTestConfig loads configuration from environment variables.
func LoadTestConfig() *TestConfig {
	return &TestConfig{
		APIEndpoint:  os.Getenv("FLOWMAILER_API_ENDPOINT"),
		AuthEndpoint: os.Getenv("FLOWMAILER_AUTH_ENDPOINT"),
		AccountID:    os.Getenv("FLOWMAILER_ACCOUNT_ID"),
		ClientID:     os.Getenv("FLOWMAILER_CLIENT_ID"),
		ClientSecret: os.Getenv("FLOWMAILER_CLIENT_SECRET"),
		Sender:       os.Getenv("FLOWMAILER_TEST_SENDER"),
		Recipient:    os.Getenv("FLOWMAILER_TEST_RECIPIENT"),
		Verbose:      os.Getenv("FLOWMAILER_VERBOSE") == "true",
	}
}

// SkipIfMissingConfig skips the test when no credentials are configured.
func (config *TestConfig) SkipIfMissingConfig(t *testing.T) {
	t.Helper()

	if config.AccountID == "" || config.ClientID == "" || config.ClientSecret == "" {
		t.Skip("FLOWMAILER_ACCOUNT_ID, FLOWMAILER_CLIENT_ID or FLOWMAILER_CLIENT_SECRET not set, skipping integration test")
	}
}

// NewClient creates a client for the configured account.
func (config *TestConfig) NewClient(t *testing.T) flowmailer.Client {
	t.Helper()

	clientConfig := &flowmailer.Config{
		APIEndpoint:  config.APIEndpoint,
		AuthEndpoint: config.AuthEndpoint,
		AccountID:    config.AccountID,
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		RetryMax:     2,
	}

	if config.Verbose {
		clientConfig.Logger = testLogger{t: t}
		clientConfig.Debug = true
	}

	client, err := fmclient.New(t.Context(), clientConfig)
	require.NoError(t, err)

	return client
}

// GenerateTestName creates a unique name for test resources.
func GenerateTestName(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

type testLogger struct {
	t *testing.T
}

func (l testLogger) Debug(msg string, fields map[string]interface{}) { l.t.Logf("DEBUG %s %v", msg, fields) }
func (l testLogger) Info(msg string, fields map[string]interface{})  { l.t.Logf("INFO %s %v", msg, fields) }
func (l testLogger) Warn(msg string, fields map[string]interface{})  { l.t.Logf("WARN %s %v", msg, fields) }
func (l testLogger) Error(msg string, fields map[string]interface{}) { l.t.Logf("ERROR %s %v", msg, fields) }
