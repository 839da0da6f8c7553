package router

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

// HTTPRouter talks to a traffic router's management API over HTTP/JSON.
// The router exposes one selector resource per service:
//
//	GET /v1/namespaces/{namespace}/services/{service}/selector
//	PUT /v1/namespaces/{namespace}/services/{service}/selector
//
// GET returns {"slot":"blue"} or 404 when no selector exists yet. PUT
// replaces the selector in one request; the router applies it
// atomically.
type HTTPRouter struct {
	// BaseURL is the router management endpoint, without trailing slash
	BaseURL string

	// Client is the HTTP client to use (allows custom configuration)
	Client *http.Client
}

// selectorDoc is the wire representation of a routing selector
type selectorDoc struct {
	Slot string `json:"slot"`
}

// NewHTTPRouter creates a router client for the given management endpoint
func NewHTTPRouter(baseURL string) *HTTPRouter {
	return &HTTPRouter{
		BaseURL: baseURL,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (r *HTTPRouter) selectorURL(service types.Service) string {
	return fmt.Sprintf("%s/v1/namespaces/%s/services/%s/selector",
		r.BaseURL, service.Namespace, service.Name)
}

// GetSelector reads the live slot for the service. A 404 means no
// selector has ever been set and maps to SlotNone; any transport or
// server error is returned as-is so callers treat it as a hard stop.
func (r *HTTPRouter) GetSelector(ctx context.Context, service types.Service) (types.Slot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.selectorURL(service), nil)
	if err != nil {
		return types.SlotNone, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return types.SlotNone, fmt.Errorf("router unreachable: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// Bootstrap case: no selector has been written yet
		return types.SlotNone, nil
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return types.SlotNone, fmt.Errorf("router returned HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var doc selectorDoc
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return types.SlotNone, fmt.Errorf("failed to decode selector: %w", err)
	}

	slot := types.Slot(doc.Slot)
	if !slot.Valid() {
		return types.SlotNone, fmt.Errorf("router reported unknown slot %q for %s", doc.Slot, service.Key())
	}
	return slot, nil
}

// SetSelector replaces the service's selector with a single PUT
func (r *HTTPRouter) SetSelector(ctx context.Context, service types.Service, slot types.Slot) error {
	if !slot.Valid() {
		return fmt.Errorf("cannot route %s to invalid slot %q", service.Key(), slot)
	}

	payload, err := json.Marshal(selectorDoc{Slot: string(slot)})
	if err != nil {
		return fmt.Errorf("failed to encode selector: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, r.selectorURL(service), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return fmt.Errorf("router unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("selector write rejected with HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	return nil
}
