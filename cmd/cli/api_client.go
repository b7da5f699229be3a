// This file implements the HTTP client used by CLI commands that talk to a
// running metricsd daemon.
package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const clientTimeout = 15 * time.Second

// APIClient provides HTTP client functionality for CLI commands.
type APIClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// APIError represents an API error response.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("API error (status %d, request %s): %s", e.StatusCode, e.RequestID, e.Message)
	}
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
}

// newAPIClient creates a client from the resolved CLI configuration.
func newAPIClient() *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(viper.GetString("api-url"), "/"),
		apiKey:  viper.GetString("api-key"),
		httpClient: &http.Client{
			Timeout: clientTimeout,
		},
	}
}

// get performs a GET request and decodes the JSON response into dest.
func (c *APIClient) get(path string, dest interface{}) error {
	return c.do(http.MethodGet, path, nil, dest)
}

// post performs a POST request with a JSON body and decodes the response
// into dest when dest is non-nil.
func (c *APIClient) post(path string, body, dest interface{}) error {
	return c.do(http.MethodPost, path, body, dest)
}

func (c *APIClient) do(method, path string, body, dest interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", c.baseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp)
	}

	if dest != nil {
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var payload struct {
		Message   string `json:"message"`
		Error     string `json:"error"`
		RequestID string `json:"request_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
		apiErr.Message = payload.Message
		if apiErr.Message == "" {
			apiErr.Message = payload.Error
		}
		apiErr.RequestID = payload.RequestID
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
