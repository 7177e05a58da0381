package domain

import "time"

// JobKind enumerates the remote generation job categories.
type JobKind string

const (
	JobKindImageEdit     JobKind = "image-edit"
	JobKindVideoGenerate JobKind = "video-generate"
)

// Valid reports whether k is a supported job kind.
func (k JobKind) Valid() bool {
	return k == JobKindImageEdit || k == JobKindVideoGenerate
}

// JobState is the provider-independent status of a remote job.
type JobState string

const (
	JobStateSubmitted  JobState = "submitted"
	JobStateProcessing JobState = "processing"
	JobStateSucceeded  JobState = "succeeded"
	JobStateFailed     JobState = "failed"
	JobStateCanceled   JobState = "canceled"
)

// Terminal reports whether no further transition can occur from s.
func (s JobState) Terminal() bool {
	switch s {
	case JobStateSucceeded, JobStateFailed, JobStateCanceled:
		return true
	default:
		return false
	}
}

// VideoMode selects the video provider task type.
type VideoMode string

const (
	VideoModeImageToVideo    VideoMode = "image-to-video"
	VideoModeTextToVideo     VideoMode = "text-to-video"
	VideoModeImageGeneration VideoMode = "image-generation"
)

// JobInput is the provider payload for one generation request. Image-edit jobs
// read the snake_case fields, video jobs the camelCase ones, mirroring the two
// provider contracts.
type JobInput struct {
	// image-edit
	Prompt           string `json:"prompt,omitempty"`
	InputImage       string `json:"input_image,omitempty"`
	AspectRatio      string `json:"aspect_ratio,omitempty"`
	Seed             *int   `json:"seed,omitempty"`
	OutputFormat     string `json:"output_format,omitempty"`
	SafetyTolerance  *int   `json:"safety_tolerance,omitempty"`
	PromptUpsampling bool   `json:"prompt_upsampling,omitempty"`

	// video-generate
	Mode        VideoMode `json:"mode,omitempty"`
	PromptText  string    `json:"promptText,omitempty"`
	PromptImage string    `json:"promptImage,omitempty"`
	Model       string    `json:"model,omitempty"`
	Ratio       string    `json:"ratio,omitempty"`
	Duration    int       `json:"duration,omitempty"`
}

// Summary returns a short log-friendly description of the input.
func (in JobInput) Summary() map[string]any {
	out := map[string]any{}
	if in.Prompt != "" {
		out["prompt"] = truncate(in.Prompt, 80)
	}
	if in.PromptText != "" {
		out["prompt_text"] = truncate(in.PromptText, 80)
	}
	if in.Mode != "" {
		out["mode"] = string(in.Mode)
	}
	if in.AspectRatio != "" {
		out["aspect_ratio"] = in.AspectRatio
	}
	if in.Ratio != "" {
		out["ratio"] = in.Ratio
	}
	if in.Model != "" {
		out["model"] = in.Model
	}
	out["has_image"] = in.InputImage != "" || in.PromptImage != ""
	return out
}

// ProducesImage reports whether a job with this input yields an image rather
// than a video.
func (in JobInput) ProducesImage(kind JobKind) bool {
	return kind == JobKindImageEdit || in.Mode == VideoModeImageGeneration
}

// ErrorDetail is the structured failure info attached to a job.
type ErrorDetail struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Code    string    `json:"code,omitempty"`
}

// GenerationJob tracks one in-flight remote generation call. It is owned by
// the orchestrator run that created it and never persisted.
type GenerationJob struct {
	ProviderJobID string
	Kind          JobKind
	State         JobState
	Input         JobInput
	Output        []string
	Progress      *float64
	ErrorDetail   *ErrorDetail
	SubmittedAt   time.Time
	LastPolledAt  time.Time
	CompletedAt   time.Time
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
