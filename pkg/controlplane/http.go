package controlplane

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cuemby/bluegreen/pkg/types"
)

// HTTPClient talks to a control plane's deployment API over HTTP/JSON.
// One deployment resource exists per slot:
//
//	PUT    /v1/namespaces/{namespace}/deployments/{service}-{slot}          (create or update)
//	GET    /v1/namespaces/{namespace}/deployments/{service}-{slot}          (spec + status)
//	PUT    /v1/namespaces/{namespace}/deployments/{service}-{slot}/scale    (replica count)
//	DELETE /v1/namespaces/{namespace}/deployments/{service}-{slot}
//
// EnsureSlotDeployed submits the spec and then polls GET until the
// control plane reports the deployment available or the context
// expires.
type HTTPClient struct {
	// BaseURL is the control-plane endpoint, without trailing slash
	BaseURL string

	// Client is the HTTP client to use (allows custom configuration)
	Client *http.Client

	// PollInterval is the delay between readiness polls (default: 5s)
	PollInterval time.Duration
}

// deploymentDoc is the wire representation of a slot deployment
type deploymentDoc struct {
	Image     string `json:"image"`
	Replicas  int    `json:"replicas"`
	Available bool   `json:"available,omitempty"`
}

// scaleDoc is the wire representation of a scale request
type scaleDoc struct {
	Replicas int `json:"replicas"`
}

// NewHTTPClient creates a control-plane client for the given endpoint
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		BaseURL: baseURL,
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
		PollInterval: 5 * time.Second,
	}
}

func (c *HTTPClient) deploymentURL(service types.Service, slot types.Slot) string {
	return fmt.Sprintf("%s/v1/namespaces/%s/deployments/%s",
		c.BaseURL, service.Namespace, types.SlotName(service, slot))
}

func (c *HTTPClient) do(req *http.Request, okStatuses ...int) (*http.Response, error) {
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("control plane unreachable: %w", err)
	}
	for _, ok := range okStatuses {
		if resp.StatusCode == ok {
			return resp, nil
		}
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	resp.Body.Close()
	return nil, fmt.Errorf("control plane returned HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(body))
}

// EnsureSlotDeployed creates or updates the slot deployment and blocks
// until it reports available or ctx expires
func (c *HTTPClient) EnsureSlotDeployed(ctx context.Context, service types.Service, slot types.Slot, imageRef string) error {
	payload, err := json.Marshal(deploymentDoc{Image: imageRef, Replicas: 1})
	if err != nil {
		return fmt.Errorf("failed to encode deployment: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.deploymentURL(service, slot), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req, http.StatusOK, http.StatusCreated, http.StatusNoContent)
	if err != nil {
		return fmt.Errorf("failed to apply deployment %s: %w", types.SlotName(service, slot), err)
	}
	resp.Body.Close()

	return c.waitAvailable(ctx, service, slot)
}

// waitAvailable polls the deployment until the control plane reports it
// available
func (c *HTTPClient) waitAvailable(ctx context.Context, service types.Service, slot types.Slot) error {
	interval := c.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	name := types.SlotName(service, slot)
	for {
		doc, err := c.getDeployment(ctx, service, slot)
		if err == nil && doc != nil && doc.Available {
			return nil
		}
		// Transient GET failures are retried until the deadline; the
		// deadline is the only thing that fails this wait.

		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return fmt.Errorf("deployment %s never became available: %w", name, ctx.Err())
		}
	}
}

// getDeployment fetches the deployment doc, returning (nil, nil) on 404
func (c *HTTPClient) getDeployment(ctx context.Context, service types.Service, slot types.Slot) (*deploymentDoc, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.deploymentURL(service, slot), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("control plane unreachable: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("control plane returned HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var doc deploymentDoc
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode deployment: %w", err)
	}
	return &doc, nil
}

// SlotImage returns the deployed image for the slot, or "" when the
// deployment does not exist
func (c *HTTPClient) SlotImage(ctx context.Context, service types.Service, slot types.Slot) (string, error) {
	doc, err := c.getDeployment(ctx, service, slot)
	if err != nil {
		return "", err
	}
	if doc == nil {
		return "", nil
	}
	return doc.Image, nil
}

// ScaleSlotToZero requests zero replicas for the slot. A 404 is treated
// as success: a slot that no longer exists is already drained.
func (c *HTTPClient) ScaleSlotToZero(ctx context.Context, service types.Service, slot types.Slot) error {
	payload, err := json.Marshal(scaleDoc{Replicas: 0})
	if err != nil {
		return fmt.Errorf("failed to encode scale request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.deploymentURL(service, slot)+"/scale", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req, http.StatusOK, http.StatusNoContent, http.StatusNotFound)
	if err != nil {
		return fmt.Errorf("failed to scale down %s: %w", types.SlotName(service, slot), err)
	}
	resp.Body.Close()
	return nil
}

// DeleteSlot removes the slot deployment, tolerating "already gone"
func (c *HTTPClient) DeleteSlot(ctx context.Context, service types.Service, slot types.Slot) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.deploymentURL(service, slot), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.do(req, http.StatusOK, http.StatusNoContent, http.StatusNotFound)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", types.SlotName(service, slot), err)
	}
	resp.Body.Close()
	return nil
}
