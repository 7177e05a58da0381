// Package video implements the video-generate provider client on top of the
// Runway task API. The same client serves image-generation mode, which uses
// the task API's text_to_image endpoint.
package video

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mediastudio/internal/domain"
	"mediastudio/internal/infra"
	"mediastudio/internal/providers"
)

// Name identifies the provider in errors, logs and persisted records.
const Name = "runway"

const (
	defaultVideoModel = "gen4_turbo"
	defaultImageModel = "gen4_image"
	defaultDuration   = 5
	defaultVideoRatio = "1280:720"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("runway: api key is required")

// Options configures the Runway client.
type Options struct {
	APIKey         string
	BaseURL        string
	APIVersion     string
	Model          string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client submits Runway tasks and reads their status.
type Client struct {
	apiKey     string
	baseURL    string
	apiVersion string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
}

type videoTaskRequest struct {
	Model       string `json:"model"`
	PromptImage string `json:"promptImage,omitempty"`
	PromptText  string `json:"promptText,omitempty"`
	Ratio       string `json:"ratio"`
	Duration    int    `json:"duration"`
}

type referenceImage struct {
	URI string `json:"uri"`
	Tag string `json:"tag,omitempty"`
}

type imageTaskRequest struct {
	Model           string           `json:"model"`
	PromptText      string           `json:"promptText"`
	Ratio           string           `json:"ratio"`
	ReferenceImages []referenceImage `json:"referenceImages,omitempty"`
}

type submitResponse struct {
	ID     string `json:"id"`
	TaskID string `json:"taskId"`
}

type task struct {
	ID          string          `json:"id"`
	Status      string          `json:"status"`
	Output      json.RawMessage `json:"output"`
	Progress    *float64        `json:"progress"`
	Failure     string          `json:"failure"`
	FailureCode string          `json:"failureCode"`
}

// NewClient constructs a client with defaults for unset options.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.dev.runwayml.com/v1"
	}
	version := strings.TrimSpace(opts.APIVersion)
	if version == "" {
		version = "2024-11-06"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultVideoModel
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		apiVersion: version,
		model:      model,
		httpClient: httpClient,
		logger:     infra.LoggerOrDiscard(opts.Logger),
	}, nil
}

func (c *Client) Name() string { return Name }

// Model returns the default video model.
func (c *Client) Model() string { return c.model }

// ModelFor returns the model a task with input would run on.
func (c *Client) ModelFor(input domain.JobInput) string {
	if m := strings.TrimSpace(input.Model); m != "" {
		return m
	}
	if input.Mode == domain.VideoModeImageGeneration {
		return defaultImageModel
	}
	return c.model
}

// Submit validates input and creates a task on the endpoint matching its
// mode. It returns the task id.
func (c *Client) Submit(ctx context.Context, input domain.JobInput) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}
	if err := providers.Validate(domain.JobKindVideoGenerate, input); err != nil {
		return "", err
	}

	path, payload := c.buildTask(input)
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("runway: encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("runway: build request: %w", err)
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")

	var out submitResponse
	if _, err := providers.DoJSON(c.httpClient, req, Name, &out); err != nil {
		c.logger.Warn().Err(err).Str("mode", string(input.Mode)).Msg("runway submit failed")
		return "", err
	}
	id := strings.TrimSpace(out.ID)
	if id == "" {
		id = strings.TrimSpace(out.TaskID)
	}
	if id == "" {
		return "", &domain.ProviderError{Provider: Name, StatusCode: http.StatusOK, Message: "response missing task id"}
	}
	c.logger.Info().Str("task_id", id).Str("mode", string(input.Mode)).Str("model", c.ModelFor(input)).Msg("runway task created")
	return id, nil
}

func (c *Client) buildTask(input domain.JobInput) (string, any) {
	model := c.ModelFor(input)
	text := strings.TrimSpace(input.PromptText)
	image := strings.TrimSpace(input.PromptImage)

	if input.Mode == domain.VideoModeImageGeneration {
		return "/text_to_image", imageTaskRequest{
			Model:           model,
			PromptText:      text,
			Ratio:           input.Ratio,
			ReferenceImages: []referenceImage{{URI: image, Tag: "product"}},
		}
	}

	ratio := input.Ratio
	if ratio == "" {
		ratio = defaultVideoRatio
	}
	duration := input.Duration
	if duration == 0 {
		duration = defaultDuration
	}
	req := videoTaskRequest{Model: model, PromptText: text, Ratio: ratio, Duration: duration}
	if input.Mode == domain.VideoModeTextToVideo {
		return "/text_to_video", req
	}
	req.PromptImage = image
	return "/image_to_video", req
}

// Status fetches the task and normalizes it.
func (c *Client) Status(ctx context.Context, providerJobID string) (providers.Status, error) {
	if c.apiKey == "" {
		return providers.Status{}, ErrMissingAPIKey
	}
	id := strings.TrimSpace(providerJobID)
	if id == "" {
		return providers.Status{}, &domain.ValidationError{Field: "id", Message: "is required"}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/tasks/"+url.PathEscape(id), nil)
	if err != nil {
		return providers.Status{}, fmt.Errorf("runway: build request: %w", err)
	}
	c.authorize(req)

	var out task
	raw, err := providers.DoJSON(c.httpClient, req, Name, &out)
	if err != nil {
		return providers.Status{}, err
	}

	st := providers.Status{
		State:    mapState(out.Status),
		Output:   providers.ParseOutput(out.Output),
		Progress: out.Progress,
		Raw:      json.RawMessage(raw),
	}
	if st.State == domain.JobStateFailed || st.State == domain.JobStateCanceled {
		st.FailureReason = providers.ExtractErrorMessage(out.Failure)
		st.FailureCode = out.FailureCode
	}
	return st, nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Runway-Version", c.apiVersion)
}

func mapState(status string) domain.JobState {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "PENDING", "THROTTLED":
		return domain.JobStateSubmitted
	case "RUNNING", "PROCESSING":
		return domain.JobStateProcessing
	case "SUCCEEDED":
		return domain.JobStateSucceeded
	case "FAILED":
		return domain.JobStateFailed
	case "CANCELLED", "CANCELED":
		return domain.JobStateCanceled
	default:
		return domain.JobStateProcessing
	}
}

var _ providers.JobClient = (*Client)(nil)
