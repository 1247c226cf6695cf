package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/flowmailer/flowmailer-go/internal/constants"
	fmhttp "github.com/flowmailer/flowmailer-go/internal/http"
	"github.com/flowmailer/flowmailer-go/pkg/flowmailer"
)

// TemplatesClient implements flowmailer.TemplatesClient.
type TemplatesClient struct {
	httpClient *fmhttp.Client
	accountID  string
}

// NewTemplatesClient creates a new templates client.
func NewTemplatesClient(httpClient *fmhttp.Client, accountID string) *TemplatesClient {
	return &TemplatesClient{
		httpClient: httpClient,
		accountID:  accountID,
	}
}

func (c *TemplatesClient) pathParams(templateID string) map[string]string {
	params := map[string]string{"accountId": c.accountID}
	if templateID != "" {
		params["templateId"] = templateID
	}

	return params
}

// List implements flowmailer.TemplatesClient.List.
func (c *TemplatesClient) List(ctx context.Context) ([]flowmailer.Template, error) {
	resp, err := c.httpClient.Do(ctx, &fmhttp.Request{
		Method:     http.MethodGet,
		Path:       constants.APIPathTemplates,
		PathParams: c.pathParams(""),
	})
	if err != nil {
		return nil, fmt.Errorf("listing templates: %w", err)
	}

	templates, err := decode[[]flowmailer.Template](c.httpClient, resp)
	if err != nil {
		return nil, fmt.Errorf("parsing templates list: %w", err)
	}

	return *templates, nil
}

// Get implements flowmailer.TemplatesClient.Get.
func (c *TemplatesClient) Get(ctx context.Context, templateID string) (*flowmailer.Template, error) {
	resp, err := c.httpClient.Do(ctx, &fmhttp.Request{
		Method:     http.MethodGet,
		Path:       constants.APIPathTemplate,
		PathParams: c.pathParams(templateID),
	})
	if err != nil {
		return nil, fmt.Errorf("getting template: %w", err)
	}

	template, err := decode[flowmailer.Template](c.httpClient, resp)
	if err != nil {
		return nil, fmt.Errorf("parsing template: %w", err)
	}

	return template, nil
}

// Create implements flowmailer.TemplatesClient.Create and returns the id of the new template.
func (c *TemplatesClient) Create(ctx context.Context, template *flowmailer.Template) (string, error) {
	resp, err := c.httpClient.Do(ctx, &fmhttp.Request{
		Method:     http.MethodPost,
		Path:       constants.APIPathTemplates,
		PathParams: c.pathParams(""),
		Body:       template,
	})
	if err != nil {
		return "", fmt.Errorf("creating template: %w", err)
	}

	return string(resp.Body), nil
}

// Update implements flowmailer.TemplatesClient.Update.
func (c *TemplatesClient) Update(ctx context.Context, templateID string, template *flowmailer.Template) (*flowmailer.Template, error) {
	resp, err := c.httpClient.Do(ctx, &fmhttp.Request{
		Method:     http.MethodPut,
		Path:       constants.APIPathTemplate,
		PathParams: c.pathParams(templateID),
		Body:       template,
	})
	if err != nil {
		return nil, fmt.Errorf("updating template: %w", err)
	}

	if len(resp.Body) == 0 {
		return template, nil
	}

	updated, err := decode[flowmailer.Template](c.httpClient, resp)
	if err != nil {
		return nil, fmt.Errorf("parsing template response: %w", err)
	}

	return updated, nil
}

// Delete implements flowmailer.TemplatesClient.Delete.
func (c *TemplatesClient) Delete(ctx context.Context, templateID string) (bool, error) {
	resp, err := c.httpClient.Do(ctx, &fmhttp.Request{
		Method:     http.MethodDelete,
		Path:       constants.APIPathTemplate,
		PathParams: c.pathParams(templateID),
	})
	if err != nil {
		return false, fmt.Errorf("deleting template: %w", err)
	}

	return resp.Deleted(), nil
}
