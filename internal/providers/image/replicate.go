// Package image implements the image-edit provider client on top of the
// Replicate predictions API.
package image

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"mediastudio/internal/domain"
	"mediastudio/internal/infra"
	"mediastudio/internal/providers"
)

// Name identifies the provider in errors, logs and persisted records.
const Name = "replicate"

// ErrMissingAPIToken indicates that the client was configured without credentials.
var ErrMissingAPIToken = errors.New("replicate: api token is required")

// Options configures the Replicate client.
type Options struct {
	APIToken       string
	BaseURL        string
	Model          string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client submits flux-kontext edits and reads prediction status.
type Client struct {
	apiToken   string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
}

type predictionRequest struct {
	Input predictionInput `json:"input"`
}

type predictionInput struct {
	Prompt           string `json:"prompt"`
	InputImage       string `json:"input_image,omitempty"`
	AspectRatio      string `json:"aspect_ratio,omitempty"`
	Seed             *int   `json:"seed,omitempty"`
	OutputFormat     string `json:"output_format,omitempty"`
	SafetyTolerance  *int   `json:"safety_tolerance,omitempty"`
	PromptUpsampling bool   `json:"prompt_upsampling,omitempty"`
}

type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  json.RawMessage `json:"error"`
	Logs   string          `json:"logs"`
}

// progressPattern matches tqdm-style progress lines in prediction logs.
var progressPattern = regexp.MustCompile(`(\d+)%\|`)

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
		baseURL = "https://api.replicate.com/v1"
	}
	model := strings.Trim(strings.TrimSpace(opts.Model), "/")
	if model == "" {
		model = "black-forest-labs/flux-kontext-pro"
	}
	return &Client{
		apiToken:   strings.TrimSpace(opts.APIToken),
		baseURL:    baseURL,
		model:      model,
		httpClient: httpClient,
		logger:     infra.LoggerOrDiscard(opts.Logger),
	}, nil
}

func (c *Client) Name() string { return Name }

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.model }

// Submit validates input and creates a prediction. It returns the
// prediction id.
func (c *Client) Submit(ctx context.Context, input domain.JobInput) (string, error) {
	if c.apiToken == "" {
		return "", ErrMissingAPIToken
	}
	if err := providers.Validate(domain.JobKindImageEdit, input); err != nil {
		return "", err
	}
	payload := predictionRequest{Input: predictionInput{
		Prompt:           strings.TrimSpace(input.Prompt),
		InputImage:       strings.TrimSpace(input.InputImage),
		AspectRatio:      input.AspectRatio,
		Seed:             input.Seed,
		OutputFormat:     input.OutputFormat,
		SafetyTolerance:  input.SafetyTolerance,
		PromptUpsampling: input.PromptUpsampling,
	}}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("replicate: encode payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s/predictions", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("replicate: build request: %w", err)
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")

	var out prediction
	if _, err := providers.DoJSON(c.httpClient, req, Name, &out); err != nil {
		c.logger.Warn().Err(err).Str("model", c.model).Msg("replicate submit failed")
		return "", err
	}
	if strings.TrimSpace(out.ID) == "" {
		return "", &domain.ProviderError{Provider: Name, StatusCode: http.StatusOK, Message: "response missing prediction id"}
	}
	c.logger.Info().Str("prediction_id", out.ID).Str("model", c.model).Msg("replicate prediction created")
	return out.ID, nil
}

// Status fetches the prediction and normalizes it.
func (c *Client) Status(ctx context.Context, providerJobID string) (providers.Status, error) {
	if c.apiToken == "" {
		return providers.Status{}, ErrMissingAPIToken
	}
	id := strings.TrimSpace(providerJobID)
	if id == "" {
		return providers.Status{}, &domain.ValidationError{Field: "id", Message: "is required"}
	}
	endpoint := c.baseURL + "/predictions/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return providers.Status{}, fmt.Errorf("replicate: build request: %w", err)
	}
	c.authorize(req)

	var out prediction
	raw, err := providers.DoJSON(c.httpClient, req, Name, &out)
	if err != nil {
		return providers.Status{}, err
	}
	return normalize(out, raw), nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
}

func normalize(p prediction, raw []byte) providers.Status {
	st := providers.Status{
		State:    mapState(p.Status),
		Output:   providers.ParseOutput(p.Output),
		Progress: parseProgress(p.Logs),
		Raw:      json.RawMessage(raw),
	}
	if st.State == domain.JobStateSucceeded {
		full := 1.0
		st.Progress = &full
	}
	if st.State == domain.JobStateFailed || st.State == domain.JobStateCanceled {
		st.FailureReason = failureReason(p.Error)
	}
	return st
}

func mapState(status string) domain.JobState {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "starting":
		return domain.JobStateSubmitted
	case "succeeded":
		return domain.JobStateSucceeded
	case "failed":
		return domain.JobStateFailed
	case "canceled", "cancelled", "aborted":
		return domain.JobStateCanceled
	default:
		return domain.JobStateProcessing
	}
}

// parseProgress returns the last percentage found in logs as a 0..1 fraction.
func parseProgress(logs string) *float64 {
	matches := progressPattern.FindAllStringSubmatch(logs, -1)
	if len(matches) == 0 {
		return nil
	}
	pct, err := strconv.Atoi(matches[len(matches)-1][1])
	if err != nil {
		return nil
	}
	if pct > 100 {
		pct = 100
	}
	v := float64(pct) / 100
	return &v
}

func failureReason(raw json.RawMessage) string {
	if len(bytes.TrimSpace(raw)) == 0 || string(raw) == "null" {
		return providers.GenericErrorMessage
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return providers.ExtractErrorMessage(s)
	}
	return providers.ExtractErrorMessage(string(raw))
}

var _ providers.JobClient = (*Client)(nil)
