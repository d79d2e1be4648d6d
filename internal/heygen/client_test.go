package heygen

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient("")
	if !errors.Is(err, ErrAPIKeyRequired) {
		t.Errorf("expected ErrAPIKeyRequired, got %v", err)
	}
}

func TestHTTPClient_Submit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v2/video/generate" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("X-Api-Key"); got != "test-key" {
			t.Errorf("expected api key header, got %q", got)
		}

		var body generateRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(body.VideoInputs) != 1 {
			t.Fatalf("expected one video input, got %d", len(body.VideoInputs))
		}
		input := body.VideoInputs[0]
		if input.Character == nil || input.Character.AvatarID != "avatar-1" {
			t.Error("expected character setting with avatar id")
		}
		if input.Voice == nil || input.Voice.InputText != "hello" {
			t.Error("expected voice setting with input text")
		}
		if body.Dimension == nil || body.Dimension.Width != 1280 {
			t.Error("expected dimension to be forwarded")
		}

		_, _ = w.Write([]byte(`{"data":{"video_id":"vid-123"}}`))
	}))
	defer server.Close()

	client, err := NewClient("test-key", WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	videoID, err := client.Submit(context.Background(), SubmitRequest{
		AvatarID:  "avatar-1",
		VoiceID:   "voice-1",
		InputText: "hello",
		Width:     1280,
		Height:    720,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if videoID != "vid-123" {
		t.Errorf("expected video id vid-123, got %q", videoID)
	}
}

func TestHTTPClient_Submit_NoVideoID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))
	defer server.Close()

	client, _ := NewClient("test-key", WithBaseURL(server.URL))
	_, err := client.Submit(context.Background(), SubmitRequest{AvatarID: "a"})
	if !errors.Is(err, ErrNoVideoIDReturned) {
		t.Errorf("expected ErrNoVideoIDReturned, got %v", err)
	}
}

func TestHTTPClient_Submit_InlineError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{},"error":{"code":"quota_exceeded","message":"out of credits"}}`))
	}))
	defer server.Close()

	client, _ := NewClient("test-key", WithBaseURL(server.URL))
	_, err := client.Submit(context.Background(), SubmitRequest{AvatarID: "a"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != "quota_exceeded" {
		t.Errorf("expected code quota_exceeded, got %q", apiErr.Code)
	}
}

func TestHTTPClient_Submit_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":"unauthorized","message":"invalid api key"}}`))
	}))
	defer server.Close()

	client, _ := NewClient("bad-key", WithBaseURL(server.URL))
	_, err := client.Submit(context.Background(), SubmitRequest{AvatarID: "a"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", apiErr.StatusCode)
	}
	if apiErr.Code != "unauthorized" {
		t.Errorf("expected code unauthorized, got %q", apiErr.Code)
	}
}

func TestHTTPClient_Poll(t *testing.T) {
	tests := []struct {
		name string
		body string
		want PollResult
	}{
		{
			name: "processing",
			body: `{"data":{"id":"vid-1","status":"processing"}}`,
			want: PollResult{Status: StatusProcessing},
		},
		{
			name: "completed",
			body: `{"data":{"id":"vid-1","status":"completed","video_url":"https://cdn.heygen.test/v.mp4","thumbnail_url":"https://cdn.heygen.test/t.jpg","duration":14.2}}`,
			want: PollResult{
				Status:       StatusCompleted,
				VideoURL:     "https://cdn.heygen.test/v.mp4",
				ThumbnailURL: "https://cdn.heygen.test/t.jpg",
				DurationSec:  14.2,
			},
		},
		{
			name: "failed",
			body: `{"data":{"id":"vid-1","status":"failed","error":{"code":"render_error","message":"render crashed"}}}`,
			want: PollResult{
				Status:       StatusFailed,
				ErrorCode:    "render_error",
				ErrorMessage: "render crashed",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/v1/video_status.get" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				if got := r.URL.Query().Get("video_id"); got != "vid-1" {
					t.Errorf("expected video_id=vid-1, got %q", got)
				}
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client, _ := NewClient("test-key", WithBaseURL(server.URL))
			got, err := client.Poll(context.Background(), "vid-1")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("unexpected result:\n got %+v\nwant %+v", got, tt.want)
			}
		})
	}
}

func TestHTTPClient_Poll_RequiresVideoID(t *testing.T) {
	client, _ := NewClient("test-key")
	_, err := client.Poll(context.Background(), "")
	if !errors.Is(err, ErrVideoIDRequired) {
		t.Errorf("expected ErrVideoIDRequired, got %v", err)
	}
}

func TestHTTPClient_Cancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/v1/video.delete" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.URL.Query().Get("video_id"); got != "vid-1" {
			t.Errorf("expected video_id=vid-1, got %q", got)
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client, _ := NewClient("test-key", WithBaseURL(server.URL))
	if err := client.Cancel(context.Background(), "vid-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	for status, want := range map[Status]bool{
		StatusPending:    false,
		StatusWaiting:    false,
		StatusProcessing: false,
		StatusCompleted:  true,
		StatusFailed:     true,
	} {
		if got := status.IsTerminal(); got != want {
			t.Errorf("IsTerminal(%s) = %v, want %v", status, got, want)
		}
	}
}
