package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/flowmailer/flowmailer-go/internal/constants"
	fmhttp "github.com/flowmailer/flowmailer-go/internal/http"
	"github.com/flowmailer/flowmailer-go/pkg/flowmailer"
)

// SenderDomainsClient implements flowmailer.SenderDomainsClient.
type SenderDomainsClient struct {
	httpClient *fmhttp.Client
	accountID  string
}

// NewSenderDomainsClient creates a new sender domains client.
func NewSenderDomainsClient(httpClient *fmhttp.Client, accountID string) *SenderDomainsClient {
	return &SenderDomainsClient{
		httpClient: httpClient,
		accountID:  accountID,
	}
}

// List implements flowmailer.SenderDomainsClient.List.
func (c *SenderDomainsClient) List(ctx context.Context) ([]flowmailer.SenderDomain, error) {
	resp, err := c.httpClient.Do(ctx, &fmhttp.Request{
		Method:     http.MethodGet,
		Path:       constants.APIPathSenderDomains,
		PathParams: map[string]string{"accountId": c.accountID},
	})
	if err != nil {
		return nil, fmt.Errorf("listing sender domains: %w", err)
	}

	domains, err := decode[[]flowmailer.SenderDomain](c.httpClient, resp)
	if err != nil {
		return nil, fmt.Errorf("parsing sender domains list: %w", err)
	}

	return *domains, nil
}

// Get implements flowmailer.SenderDomainsClient.Get.
func (c *SenderDomainsClient) Get(ctx context.Context, domainID string) (*flowmailer.SenderDomain, error) {
	resp, err := c.httpClient.Do(ctx, &fmhttp.Request{
		Method:     http.MethodGet,
		Path:       constants.APIPathSenderDomain,
		PathParams: map[string]string{"accountId": c.accountID, "domainId": domainID},
	})
	if err != nil {
		return nil, fmt.Errorf("getting sender domain: %w", err)
	}

	domain, err := decode[flowmailer.SenderDomain](c.httpClient, resp)
	if err != nil {
		return nil, fmt.Errorf("parsing sender domain: %w", err)
	}

	return domain, nil
}

// Create implements flowmailer.SenderDomainsClient.Create and returns the id of the new domain.
func (c *SenderDomainsClient) Create(ctx context.Context, domain *flowmailer.SenderDomain) (string, error) {
	resp, err := c.httpClient.Do(ctx, &fmhttp.Request{
		Method:     http.MethodPost,
		Path:       constants.APIPathSenderDomains,
		PathParams: map[string]string{"accountId": c.accountID},
		Body:       domain,
	})
	if err != nil {
		return "", fmt.Errorf("creating sender domain: %w", err)
	}

	return string(resp.Body), nil
}

// Delete implements flowmailer.SenderDomainsClient.Delete.
func (c *SenderDomainsClient) Delete(ctx context.Context, domainID string) (bool, error) {
	resp, err := c.httpClient.Do(ctx, &fmhttp.Request{
		Method:     http.MethodDelete,
		Path:       constants.APIPathSenderDomain,
		PathParams: map[string]string{"accountId": c.accountID, "domainId": domainID},
	})
	if err != nil {
		return false, fmt.Errorf("deleting sender domain: %w", err)
	}

	return resp.Deleted(), nil
}

// Validate implements flowmailer.SenderDomainsClient.Validate. The domain is
// checked without being saved; the result carries the DNS records to publish.
func (c *SenderDomainsClient) Validate(ctx context.Context, domain *flowmailer.SenderDomain) (*flowmailer.SenderDomain, error) {
	resp, err := c.httpClient.Do(ctx, &fmhttp.Request{
		Method:     http.MethodPost,
		Path:       constants.APIPathSenderDomainValidate,
		PathParams: map[string]string{"accountId": c.accountID},
		Body:       domain,
	})
	if err != nil {
		return nil, fmt.Errorf("validating sender domain: %w", err)
	}

	validated, err := decode[flowmailer.SenderDomain](c.httpClient, resp)
	if err != nil {
		return nil, fmt.Errorf("parsing sender domain validation: %w", err)
	}

	return validated, nil
}
