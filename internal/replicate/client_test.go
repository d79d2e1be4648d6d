package replicate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func TestNewClient_RequiresToken(t *testing.T) {
	_, err := NewClient("")
	if !errors.Is(err, ErrTokenRequired) {
		t.Errorf("expected ErrTokenRequired, got %v", err)
	}
}

func TestHTTPClient_Submit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/predictions" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("expected bearer token, got %q", got)
		}

		var body predictionRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body.Version != "black-forest-labs/flux-schnell" {
			t.Errorf("expected version to be forwarded, got %q", body.Version)
		}
		if body.Input["prompt"] != "a red fox" {
			t.Errorf("expected input to be forwarded, got %v", body.Input)
		}

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"pred-1","status":"starting"}`))
	}))
	defer server.Close()

	client, err := NewClient("test-token", WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	id, err := client.Submit(context.Background(), SubmitRequest{
		Version: "black-forest-labs/flux-schnell",
		Input:   map[string]any{"prompt": "a red fox"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "pred-1" {
		t.Errorf("expected prediction id pred-1, got %q", id)
	}
}

func TestHTTPClient_Submit_NoID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client, _ := NewClient("test-token", WithBaseURL(server.URL))
	_, err := client.Submit(context.Background(), SubmitRequest{Version: "v"})
	if !errors.Is(err, ErrNoPredictionID) {
		t.Errorf("expected ErrNoPredictionID, got %v", err)
	}
}

func TestHTTPClient_Submit_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":"invalid version"}`))
	}))
	defer server.Close()

	client, _ := NewClient("test-token", WithBaseURL(server.URL))
	_, err := client.Submit(context.Background(), SubmitRequest{Version: "bogus"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("expected status 422, got %d", apiErr.StatusCode)
	}
	if apiErr.Message != "invalid version" {
		t.Errorf("expected detail message, got %q", apiErr.Message)
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
			body: `{"id":"pred-1","status":"processing"}`,
			want: PollResult{Status: StatusProcessing},
		},
		{
			name: "succeeded with list output",
			body: `{"id":"pred-1","status":"succeeded","output":["https://cdn.replicate.test/a.png","https://cdn.replicate.test/b.png"]}`,
			want: PollResult{
				Status:     StatusSucceeded,
				OutputURLs: []string{"https://cdn.replicate.test/a.png", "https://cdn.replicate.test/b.png"},
			},
		},
		{
			name: "succeeded with single output",
			body: `{"id":"pred-1","status":"succeeded","output":"https://cdn.replicate.test/v.mp4"}`,
			want: PollResult{
				Status:     StatusSucceeded,
				OutputURLs: []string{"https://cdn.replicate.test/v.mp4"},
			},
		},
		{
			name: "failed",
			body: `{"id":"pred-1","status":"failed","error":"CUDA out of memory"}`,
			want: PollResult{
				Status:       StatusFailed,
				ErrorMessage: "CUDA out of memory",
			},
		},
		{
			name: "canceled",
			body: `{"id":"pred-1","status":"canceled"}`,
			want: PollResult{Status: StatusCanceled},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/v1/predictions/pred-1" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client, _ := NewClient("test-token", WithBaseURL(server.URL))
			got, err := client.Poll(context.Background(), "pred-1")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("unexpected result:\n got %+v\nwant %+v", got, tt.want)
			}
		})
	}
}

func TestHTTPClient_Poll_RequiresPredictionID(t *testing.T) {
	client, _ := NewClient("test-token")
	_, err := client.Poll(context.Background(), "")
	if !errors.Is(err, ErrPredictionIDRequired) {
		t.Errorf("expected ErrPredictionIDRequired, got %v", err)
	}
}

func TestHTTPClient_Cancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/predictions/pred-1/cancel" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"id":"pred-1","status":"canceled"}`))
	}))
	defer server.Close()

	client, _ := NewClient("test-token", WithBaseURL(server.URL))
	if err := client.Cancel(context.Background(), "pred-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestOutputURLs(t *testing.T) {
	if got := outputURLs(nil); got != nil {
		t.Errorf("expected nil for nil output, got %v", got)
	}
	if got := outputURLs(42.0); got != nil {
		t.Errorf("expected nil for numeric output, got %v", got)
	}
	got := outputURLs([]any{"https://x/a", 1.0, "https://x/b"})
	want := []string{"https://x/a", "https://x/b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected non-string items to be skipped, got %v", got)
	}
}
