// Package replicate provides an HTTP client for the Replicate predictions API,
// used for text-to-image and image-to-video generation.
package replicate

// Status represents the status of a Replicate prediction.
type Status string

// Replicate prediction statuses aligned with the Replicate API.
const (
	StatusStarting   Status = "starting"
	StatusProcessing Status = "processing"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
	StatusCanceled   Status = "canceled" // Replicate uses the American spelling
)

// IsTerminal returns true if the status is a terminal state.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusCanceled:
		return true
	default:
		return false
	}
}

// SubmitRequest contains the parameters for creating a prediction.
type SubmitRequest struct {
	// Version is the model version to run.
	Version string
	// Input is the model-specific input payload.
	Input map[string]any
}

// PollResult contains the outcome of polling a prediction.
type PollResult struct {
	Status Status
	// OutputURLs are the produced asset locations (set when succeeded).
	OutputURLs []string
	// ErrorMessage describes the failure (set when failed).
	ErrorMessage string
}

// predictionRequest is the request body for POST /v1/predictions.
type predictionRequest struct {
	Version string         `json:"version"`
	Input   map[string]any `json:"input"`
}

// predictionResponse is the response body for prediction create/get calls.
// Output is a raw message because models return either a single URL string
// or a list of URL strings.
type predictionResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Output any    `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}
