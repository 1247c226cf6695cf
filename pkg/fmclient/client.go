package fmclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/flowmailer/flowmailer-go/internal/client"
	"github.com/flowmailer/flowmailer-go/pkg/flowmailer"
)

// New creates a new Flowmailer API client.
func New(ctx context.Context, config *flowmailer.Config) (flowmailer.Client, error) {
	if config == nil {
		return nil, flowmailer.ErrConfigRequired
	}

	normalized := *config
	normalized.APIEndpoint = normalizeEndpoint(config.APIEndpoint)
	normalized.AuthEndpoint = normalizeEndpoint(config.AuthEndpoint)

	fm, err := client.New(ctx, &normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return fm, nil
}

// NewWithClientCredentials creates a client for accountID against the
// production endpoints.
func NewWithClientCredentials(ctx context.Context, accountID, clientID, clientSecret string) (flowmailer.Client, error) {
	return New(ctx, &flowmailer.Config{
		AccountID:    accountID,
		ClientID:     clientID,
		ClientSecret: clientSecret,
	})
}

// normalizeEndpoint trims trailing slashes and defaults the scheme to https.
// An empty endpoint stays empty so the client default applies.
func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return ""
	}

	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	return endpoint
}
