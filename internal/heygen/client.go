package heygen

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

// Static errors for HeyGen client operations.
var (
	// ErrAPIKeyRequired is returned when the API key is not provided.
	ErrAPIKeyRequired = errors.New("heygen: API key is required")
	// ErrVideoIDRequired is returned when the video ID is not provided.
	ErrVideoIDRequired = errors.New("heygen: video ID is required")
	// ErrNoVideoIDReturned is returned when the generate response contains no video ID.
	ErrNoVideoIDReturned = errors.New("heygen: generate failed: no video ID returned")
)

// APIError is returned for non-2xx responses from the HeyGen API.
// Callers classify retryability from the status code.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("heygen: request failed with status %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// Client defines the interface for interacting with the HeyGen API.
type Client interface {
	// Submit starts a generation task and returns the HeyGen video ID.
	Submit(ctx context.Context, req SubmitRequest) (videoID string, err error)

	// Poll checks the status of a task and returns the result.
	Poll(ctx context.Context, videoID string) (PollResult, error)

	// Cancel requests deletion of an in-flight task.
	Cancel(ctx context.Context, videoID string) error
}

// HTTPClient is the HTTP implementation of the HeyGen Client interface.
// Each call is a single attempt; retry policy is owned by the caller.
type HTTPClient struct {
	apiKey     string
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

// WithBaseURL sets a custom base URL for the HeyGen API.
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

// NewClient creates a new HeyGen HTTP client.
func NewClient(apiKey string, opts ...ClientOption) (*HTTPClient, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyRequired
	}

	c := &HTTPClient{
		apiKey:     apiKey,
		baseURL:    "https://api.heygen.com",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Submit starts a generation task and returns the HeyGen video ID.
func (c *HTTPClient) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	input := videoInput{}
	if req.AvatarID != "" {
		input.Character = &characterSetting{Type: "avatar", AvatarID: req.AvatarID}
	}
	if req.VoiceID != "" || req.InputText != "" {
		input.Voice = &voiceSetting{Type: "text", VoiceID: req.VoiceID, InputText: req.InputText}
	}
	if req.AudioURL != "" {
		input.Audio = &audioSetting{Type: "audio", AudioURL: req.AudioURL}
	}
	if req.VideoURL != "" {
		input.Video = &videoSetting{Type: "video", VideoURL: req.VideoURL}
	}

	body := generateRequest{VideoInputs: []videoInput{input}}
	if req.Width > 0 && req.Height > 0 {
		body.Dimension = &dimension{Width: req.Width, Height: req.Height}
	}

	var resp generateResponse
	if err := c.doRequest(ctx, http.MethodPost, c.baseURL+"/v2/video/generate", body, &resp); err != nil {
		return "", err
	}

	if resp.Data.VideoID == "" {
		if resp.Error != nil {
			return "", &APIError{StatusCode: http.StatusOK, Code: resp.Error.Code, Message: resp.Error.Message}
		}
		return "", ErrNoVideoIDReturned
	}
	return resp.Data.VideoID, nil
}

// Poll checks the status of a task and returns the result.
func (c *HTTPClient) Poll(ctx context.Context, videoID string) (PollResult, error) {
	if videoID == "" {
		return PollResult{}, ErrVideoIDRequired
	}

	url := fmt.Sprintf("%s/v1/video_status.get?video_id=%s", c.baseURL, videoID)

	var resp statusResponse
	if err := c.doRequest(ctx, http.MethodGet, url, nil, &resp); err != nil {
		return PollResult{}, err
	}

	result := PollResult{Status: Status(resp.Data.Status)}
	switch result.Status {
	case StatusCompleted:
		result.VideoURL = resp.Data.VideoURL
		result.ThumbnailURL = resp.Data.ThumbnailURL
		result.DurationSec = resp.Data.Duration
	case StatusFailed:
		if resp.Data.Error != nil {
			result.ErrorCode = resp.Data.Error.Code
			result.ErrorMessage = resp.Data.Error.Message
		}
	}
	return result, nil
}

// Cancel requests deletion of an in-flight task.
func (c *HTTPClient) Cancel(ctx context.Context, videoID string) error {
	if videoID == "" {
		return ErrVideoIDRequired
	}
	url := fmt.Sprintf("%s/v1/video.delete?video_id=%s", c.baseURL, videoID)
	return c.doRequest(ctx, http.MethodDelete, url, nil, nil)
}

// doRequest performs a single HTTP request and decodes the JSON response.
func (c *HTTPClient) doRequest(ctx context.Context, method, url string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("heygen: marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("heygen: create request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("heygen: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("heygen: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var wrapper struct {
			Error *apiErrorBody `json:"error"`
		}
		if json.Unmarshal(respBody, &wrapper) == nil && wrapper.Error != nil {
			apiErr.Code = wrapper.Error.Code
			apiErr.Message = wrapper.Error.Message
		} else {
			apiErr.Message = string(respBody)
		}
		return apiErr
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("heygen: unmarshal response: %w", err)
		}
	}
	return nil
}
