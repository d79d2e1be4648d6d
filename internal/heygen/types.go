// Package heygen provides an HTTP client for the HeyGen avatar video and
// lipsync generation API.
package heygen

// Status represents the status of a HeyGen video generation task.
type Status string

// HeyGen task statuses aligned with the HeyGen API.
const (
	StatusPending    Status = "pending"
	StatusWaiting    Status = "waiting"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// IsTerminal returns true if the status is a terminal state.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// SubmitRequest contains the parameters for a HeyGen generation task.
type SubmitRequest struct {
	// AvatarID selects the presenter avatar. Required for avatar videos.
	AvatarID string
	// VoiceID selects the synthesized voice.
	VoiceID string
	// InputText is the script the avatar speaks.
	InputText string
	// VideoURL is the source video for lipsync tasks.
	VideoURL string
	// AudioURL is the driving audio for lipsync tasks.
	AudioURL string
	// Width and Height are the output dimensions.
	Width  int
	Height int
}

// PollResult contains the outcome of polling a HeyGen task.
type PollResult struct {
	Status Status
	// VideoURL is the produced asset location (set when completed).
	VideoURL string
	// ThumbnailURL is the preview image location (set when completed).
	ThumbnailURL string
	// DurationSec is the produced video duration (set when completed).
	DurationSec float64
	// ErrorCode and ErrorMessage describe the failure (set when failed).
	ErrorCode    string
	ErrorMessage string
}

// generateRequest is the request body for /v2/video/generate.
type generateRequest struct {
	Title       string       `json:"title,omitempty"`
	VideoInputs []videoInput `json:"video_inputs"`
	Dimension   *dimension   `json:"dimension,omitempty"`
}

type videoInput struct {
	Character *characterSetting `json:"character,omitempty"`
	Voice     *voiceSetting     `json:"voice,omitempty"`
	Audio     *audioSetting     `json:"audio,omitempty"`
	Video     *videoSetting     `json:"video,omitempty"`
}

type characterSetting struct {
	Type     string `json:"type"`
	AvatarID string `json:"avatar_id"`
}

type voiceSetting struct {
	Type      string `json:"type"`
	VoiceID   string `json:"voice_id"`
	InputText string `json:"input_text"`
}

type audioSetting struct {
	Type     string `json:"type"`
	AudioURL string `json:"audio_url"`
}

type videoSetting struct {
	Type     string `json:"type"`
	VideoURL string `json:"video_url"`
}

type dimension struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// generateResponse is the response body from /v2/video/generate.
type generateResponse struct {
	Data struct {
		VideoID string `json:"video_id"`
	} `json:"data"`
	Error *apiErrorBody `json:"error,omitempty"`
}

// statusResponse is the response body from /v1/video_status.get.
type statusResponse struct {
	Data struct {
		ID           string  `json:"id"`
		Status       string  `json:"status"`
		VideoURL     string  `json:"video_url,omitempty"`
		ThumbnailURL string  `json:"thumbnail_url,omitempty"`
		Duration     float64 `json:"duration,omitempty"`
		Error        *struct {
			Code    string `json:"code,omitempty"`
			Message string `json:"message,omitempty"`
		} `json:"error,omitempty"`
	} `json:"data"`
	Error *apiErrorBody `json:"error,omitempty"`
}

type apiErrorBody struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}
