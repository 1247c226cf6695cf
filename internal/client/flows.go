package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/flowmailer/flowmailer-go/internal/constants"
	fmhttp "github.com/flowmailer/flowmailer-go/internal/http"
	"github.com/flowmailer/flowmailer-go/pkg/flowmailer"
)

// FlowsClient implements flowmailer.FlowsClient.
type FlowsClient struct {
	httpClient *fmhttp.Client
	accountID  string
}

// NewFlowsClient creates a new flows client.
func NewFlowsClient(httpClient *fmhttp.Client, accountID string) *FlowsClient {
	return &FlowsClient{
		httpClient: httpClient,
		accountID:  accountID,
	}
}

func (c *FlowsClient) pathParams(flowID string) map[string]string {
	params := map[string]string{"accountId": c.accountID}
	if flowID != "" {
		params["flowId"] = flowID
	}

	return params
}

// List implements flowmailer.FlowsClient.List.
func (c *FlowsClient) List(ctx context.Context) ([]flowmailer.Flow, error) {
	resp, err := c.httpClient.Do(ctx, &fmhttp.Request{
		Method:     http.MethodGet,
		Path:       constants.APIPathFlows,
		PathParams: c.pathParams(""),
	})
	if err != nil {
		return nil, fmt.Errorf("listing flows: %w", err)
	}

	flows, err := decode[[]flowmailer.Flow](c.httpClient, resp)
	if err != nil {
		return nil, fmt.Errorf("parsing flows list: %w", err)
	}

	return *flows, nil
}

// Get implements flowmailer.FlowsClient.Get.
func (c *FlowsClient) Get(ctx context.Context, flowID string) (*flowmailer.Flow, error) {
	resp, err := c.httpClient.Do(ctx, &fmhttp.Request{
		Method:     http.MethodGet,
		Path:       constants.APIPathFlow,
		PathParams: c.pathParams(flowID),
	})
	if err != nil {
		return nil, fmt.Errorf("getting flow: %w", err)
	}

	flow, err := decode[flowmailer.Flow](c.httpClient, resp)
	if err != nil {
		return nil, fmt.Errorf("parsing flow: %w", err)
	}

	return flow, nil
}

// Create implements flowmailer.FlowsClient.Create and returns the id of the new flow.
func (c *FlowsClient) Create(ctx context.Context, flow *flowmailer.Flow) (string, error) {
	resp, err := c.httpClient.Do(ctx, &fmhttp.Request{
		Method:     http.MethodPost,
		Path:       constants.APIPathFlows,
		PathParams: c.pathParams(""),
		Body:       flow,
	})
	if err != nil {
		return "", fmt.Errorf("creating flow: %w", err)
	}

	return string(resp.Body), nil
}

// Update implements flowmailer.FlowsClient.Update.
func (c *FlowsClient) Update(ctx context.Context, flowID string, flow *flowmailer.Flow) (*flowmailer.Flow, error) {
	resp, err := c.httpClient.Do(ctx, &fmhttp.Request{
		Method:     http.MethodPut,
		Path:       constants.APIPathFlow,
		PathParams: c.pathParams(flowID),
		Body:       flow,
	})
	if err != nil {
		return nil, fmt.Errorf("updating flow: %w", err)
	}

	if len(resp.Body) == 0 {
		return flow, nil
	}

	updated, err := decode[flowmailer.Flow](c.httpClient, resp)
	if err != nil {
		return nil, fmt.Errorf("parsing flow response: %w", err)
	}

	return updated, nil
}

// Delete implements flowmailer.FlowsClient.Delete.
func (c *FlowsClient) Delete(ctx context.Context, flowID string) (bool, error) {
	resp, err := c.httpClient.Do(ctx, &fmhttp.Request{
		Method:     http.MethodDelete,
		Path:       constants.APIPathFlow,
		PathParams: c.pathParams(flowID),
	})
	if err != nil {
		return false, fmt.Errorf("deleting flow: %w", err)
	}

	return resp.Deleted(), nil
}
