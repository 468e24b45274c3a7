// Package api implements the HTTP client for the parcel sync server.
// Transport failures are mapped onto the syncerr taxonomy so retry policies
// can classify them without touching net internals.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/ozarkdata/parcelsync/internal/syncerr"
	"github.com/ozarkdata/parcelsync/pkg/api"
)

//go:generate go tool moq -out client_mock.go . SyncAPI

// SyncAPI is the server surface the sync service depends on.
type SyncAPI interface {
	DeltaSync(ctx context.Context, token string, req api.DeltaSyncRequest) (*api.DeltaSyncResponse, error)
	FullSync(ctx context.Context, token string, req api.FullSyncRequest) (*api.FullSyncResponse, error)
	DeviceKey(ctx context.Context, req api.DeviceKeyRequest) (*api.TokenResponse, error)
	Ping(ctx context.Context) error
}

// Client is the HTTP client for the sync server
type Client struct {
	httpClient *http.Client
	baseURL    string
}

var _ SyncAPI = (*Client)(nil)

// NewClient creates a new API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Carry the bearer token across redirects
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
}

// DeltaSync exchanges changes accumulated since the last checkpoint
func (c *Client) DeltaSync(ctx context.Context, token string, req api.DeltaSyncRequest) (*api.DeltaSyncResponse, error) {
	var resp api.DeltaSyncResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/sync/delta", token, req, &resp); err != nil {
		return nil, fmt.Errorf("delta sync request failed: %w", err)
	}
	return &resp, nil
}

// FullSync downloads the complete authoritative record set
func (c *Client) FullSync(ctx context.Context, token string, req api.FullSyncRequest) (*api.FullSyncResponse, error) {
	var resp api.FullSyncResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/sync/full", token, req, &resp); err != nil {
		return nil, fmt.Errorf("full sync request failed: %w", err)
	}
	return &resp, nil
}

// DeviceKey enrolls the device and obtains an access token
func (c *Client) DeviceKey(ctx context.Context, req api.DeviceKeyRequest) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/device-key", "", req, &resp); err != nil {
		return nil, fmt.Errorf("device key request failed: %w", err)
	}
	return &resp, nil
}

// Ping checks server reachability
func (c *Client) Ping(ctx context.Context) error {
	return c.doRequest(ctx, http.MethodGet, "/health", "", nil, nil)
}

// doRequest executes an HTTP request and maps failures onto the error taxonomy
func (c *Client) doRequest(ctx context.Context, method, path, token string, body, result any) error {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return classifyTransportError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return serverError(resp.StatusCode, respBody)
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return &syncerr.DecodingError{Err: err}
		}
	}

	return nil
}

// serverError maps a non-2xx status onto the taxonomy. Auth failures get the
// sentinel so callers never retry them.
func serverError(statusCode int, body []byte) error {
	message := string(body)
	var errResp api.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Message != "" {
		message = errResp.Message
	}

	if statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden {
		return fmt.Errorf("%w: %s", syncerr.ErrAuthenticationFailed, message)
	}

	return &syncerr.ServerError{StatusCode: statusCode, Message: message}
}

// classifyTransportError maps raw net errors onto the taxonomy sentinels.
func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", syncerr.ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", syncerr.ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	// Everything else that never reached the server is a connectivity failure.
	return fmt.Errorf("%w: %v", syncerr.ErrNetworkUnavailable, err)
}
