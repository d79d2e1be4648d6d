package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Static errors for Replicate client operations.
var (
	// ErrTokenRequired is returned when the API token is not provided.
	ErrTokenRequired = errors.New("replicate: API token is required")
	// ErrPredictionIDRequired is returned when the prediction ID is not provided.
	ErrPredictionIDRequired = errors.New("replicate: prediction ID is required")
	// ErrNoPredictionID is returned when the create response contains no prediction ID.
	ErrNoPredictionID = errors.New("replicate: create failed: no prediction ID returned")
)

// APIError is returned for non-2xx responses from the Replicate API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("replicate: request failed with status %d: %s", e.StatusCode, e.Message)
}

// Client defines the interface for interacting with the Replicate API.
type Client interface {
	// Submit creates a prediction and returns its ID.
	Submit(ctx context.Context, req SubmitRequest) (predictionID string, err error)

	// Poll checks the status of a prediction and returns the result.
	Poll(ctx context.Context, predictionID string) (PollResult, error)

	// Cancel requests cancellation of an in-flight prediction.
	Cancel(ctx context.Context, predictionID string) error
}

// HTTPClient is the HTTP implementation of the Replicate Client interface.
// Each call is a single attempt; retry policy is owned by the caller.
type HTTPClient struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

// ClientOption is a function that configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(hc *HTTPClient) {
		hc.httpClient = c
	}
}

// WithBaseURL sets a custom base URL for the Replicate API.
func WithBaseURL(url string) ClientOption {
	return func(hc *HTTPClient) {
		hc.baseURL = url
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(hc *HTTPClient) {
		hc.httpClient.Timeout = d
	}
}

// NewClient creates a new Replicate HTTP client.
func NewClient(token string, opts ...ClientOption) (*HTTPClient, error) {
	if token == "" {
		return nil, ErrTokenRequired
	}

	c := &HTTPClient{
		token:      token,
		baseURL:    "https://api.replicate.com",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Submit creates a prediction and returns its ID.
func (c *HTTPClient) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	body := predictionRequest{Version: req.Version, Input: req.Input}

	var resp predictionResponse
	if err := c.doRequest(ctx, http.MethodPost, c.baseURL+"/v1/predictions", body, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", ErrNoPredictionID
	}
	return resp.ID, nil
}

// Poll checks the status of a prediction and returns the result.
func (c *HTTPClient) Poll(ctx context.Context, predictionID string) (PollResult, error) {
	if predictionID == "" {
		return PollResult{}, ErrPredictionIDRequired
	}

	url := fmt.Sprintf("%s/v1/predictions/%s", c.baseURL, predictionID)

	var resp predictionResponse
	if err := c.doRequest(ctx, http.MethodGet, url, nil, &resp); err != nil {
		return PollResult{}, err
	}

	result := PollResult{Status: Status(resp.Status)}
	switch result.Status {
	case StatusSucceeded:
		result.OutputURLs = outputURLs(resp.Output)
	case StatusFailed:
		result.ErrorMessage = resp.Error
	}
	return result, nil
}

// Cancel requests cancellation of an in-flight prediction.
func (c *HTTPClient) Cancel(ctx context.Context, predictionID string) error {
	if predictionID == "" {
		return ErrPredictionIDRequired
	}
	url := fmt.Sprintf("%s/v1/predictions/%s/cancel", c.baseURL, predictionID)
	return c.doRequest(ctx, http.MethodPost, url, nil, nil)
}

// outputURLs normalizes the model output, which is either a single URL
// string or a list of URL strings.
func outputURLs(output any) []string {
	switch v := output.(type) {
	case string:
		return []string{v}
	case []any:
		urls := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				urls = append(urls, s)
			}
		}
		return urls
	default:
		return nil
	}
}

// doRequest performs a single HTTP request and decodes the JSON response.
func (c *HTTPClient) doRequest(ctx context.Context, method, url string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("replicate: marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("replicate: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("replicate: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("replicate: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
		var detail struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(respBody, &detail) == nil && detail.Detail != "" {
			apiErr.Message = detail.Detail
		}
		return apiErr
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("replicate: unmarshal response: %w", err)
		}
	}
	return nil
}
