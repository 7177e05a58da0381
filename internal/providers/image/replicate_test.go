package image

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"mediastudio/internal/domain"
)

func TestSubmitPostsPredictionPayload(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	transport.setJSONResponse("/v1/models/black-forest-labs/flux-kontext-pro/predictions", http.StatusCreated, map[string]any{
		"id":     "pred-1",
		"status": "starting",
	})
	client, err := NewClient(Options{APIToken: "tok", HTTPClient: &http.Client{Transport: transport}})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	seed := 7
	id, err := client.Submit(context.Background(), domain.JobInput{
		Prompt:      "  make the mug red ",
		InputImage:  "https://cdn.example.com/mug.png",
		AspectRatio: "1:1",
		Seed:        &seed,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if id != "pred-1" {
		t.Fatalf("id = %q, want pred-1", id)
	}
	if got := transport.lastHeader.Get("Authorization"); got != "Bearer tok" {
		t.Fatalf("authorization = %q", got)
	}

	var payload struct {
		Input map[string]any `json:"input"`
	}
	if err := json.Unmarshal(transport.lastBody, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Input["prompt"] != "make the mug red" {
		t.Fatalf("prompt = %v", payload.Input["prompt"])
	}
	if payload.Input["input_image"] != "https://cdn.example.com/mug.png" {
		t.Fatalf("input_image = %v", payload.Input["input_image"])
	}
	if payload.Input["seed"] != float64(7) {
		t.Fatalf("seed = %v", payload.Input["seed"])
	}
	if _, ok := payload.Input["output_format"]; ok {
		t.Fatalf("unset output_format should be omitted")
	}
}

func TestSubmitRejectsInvalidInputWithoutCalling(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	client, _ := NewClient(Options{APIToken: "tok", HTTPClient: &http.Client{Transport: transport}})

	_, err := client.Submit(context.Background(), domain.JobInput{Prompt: "x", AspectRatio: "5:7"})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if transport.calls != 0 {
		t.Fatalf("expected no HTTP calls, got %d", transport.calls)
	}
}

func TestSubmitMapsProviderError(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	transport.setJSONResponse("/v1/models/black-forest-labs/flux-kontext-pro/predictions", http.StatusUnprocessableEntity, map[string]any{
		"detail": "input_image could not be fetched",
	})
	client, _ := NewClient(Options{APIToken: "tok", HTTPClient: &http.Client{Transport: transport}})

	_, err := client.Submit(context.Background(), domain.JobInput{Prompt: "x"})
	var pe *domain.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if pe.StatusCode != http.StatusUnprocessableEntity || pe.Message != "input_image could not be fetched" {
		t.Fatalf("unexpected provider error: %+v", pe)
	}
}

func TestSubmitRequiresToken(t *testing.T) {
	client, _ := NewClient(Options{})
	if _, err := client.Submit(context.Background(), domain.JobInput{Prompt: "x"}); !errors.Is(err, ErrMissingAPIToken) {
		t.Fatalf("expected ErrMissingAPIToken, got %v", err)
	}
}

func TestStatusNormalizesPredictions(t *testing.T) {
	tests := []struct {
		name         string
		body         map[string]any
		wantState    domain.JobState
		wantOutput   []string
		wantProgress float64
		wantReason   string
	}{
		{
			name:      "starting",
			body:      map[string]any{"id": "p", "status": "starting"},
			wantState: domain.JobStateSubmitted,
		},
		{
			name:         "processing with logs",
			body:         map[string]any{"id": "p", "status": "processing", "logs": " 10%|█ | 1/10\n 40%|████ | 4/10"},
			wantState:    domain.JobStateProcessing,
			wantProgress: 0.4,
		},
		{
			name:         "succeeded single output",
			body:         map[string]any{"id": "p", "status": "succeeded", "output": "https://x/out.png"},
			wantState:    domain.JobStateSucceeded,
			wantOutput:   []string{"https://x/out.png"},
			wantProgress: 1,
		},
		{
			name:         "succeeded list output",
			body:         map[string]any{"id": "p", "status": "succeeded", "output": []string{"https://x/a.png", "https://x/b.png"}},
			wantState:    domain.JobStateSucceeded,
			wantOutput:   []string{"https://x/a.png", "https://x/b.png"},
			wantProgress: 1,
		},
		{
			name:       "failed",
			body:       map[string]any{"id": "p", "status": "failed", "error": "NSFW content detected"},
			wantState:  domain.JobStateFailed,
			wantReason: "NSFW content detected",
		},
		{
			name:       "aborted",
			body:       map[string]any{"id": "p", "status": "aborted"},
			wantState:  domain.JobStateCanceled,
			wantReason: "Failed to retrieve task",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			transport := &captureTransport{responses: map[string]responseStub{}}
			transport.setJSONResponse("/v1/predictions/p", http.StatusOK, tc.body)
			client, _ := NewClient(Options{APIToken: "tok", HTTPClient: &http.Client{Transport: transport}})

			st, err := client.Status(context.Background(), "p")
			if err != nil {
				t.Fatalf("status: %v", err)
			}
			if st.State != tc.wantState {
				t.Fatalf("state = %q, want %q", st.State, tc.wantState)
			}
			if len(st.Output) != len(tc.wantOutput) {
				t.Fatalf("output = %v, want %v", st.Output, tc.wantOutput)
			}
			for i := range tc.wantOutput {
				if st.Output[i] != tc.wantOutput[i] {
					t.Fatalf("output[%d] = %q, want %q", i, st.Output[i], tc.wantOutput[i])
				}
			}
			if tc.wantProgress > 0 {
				if st.Progress == nil || *st.Progress != tc.wantProgress {
					t.Fatalf("progress = %v, want %v", st.Progress, tc.wantProgress)
				}
			}
			if st.FailureReason != tc.wantReason {
				t.Fatalf("failure reason = %q, want %q", st.FailureReason, tc.wantReason)
			}
			if len(st.Raw) == 0 {
				t.Fatalf("expected raw payload to be kept")
			}
		})
	}
}

func TestStatusNotFound(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	transport.setJSONResponse("/v1/predictions/missing", http.StatusNotFound, map[string]any{"detail": "Not found."})
	client, _ := NewClient(Options{APIToken: "tok", HTTPClient: &http.Client{Transport: transport}})

	_, err := client.Status(context.Background(), "missing")
	var pe *domain.ProviderError
	if !errors.As(err, &pe) || pe.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 ProviderError, got %v", err)
	}
}

type captureTransport struct {
	responses  map[string]responseStub
	lastBody   []byte
	lastHeader http.Header
	calls      int
}

type responseStub struct {
	status int
	header http.Header
	body   []byte
}

func (c *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.calls++
	c.lastHeader = req.Header.Clone()
	if req.Body != nil {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body.Close()
		c.lastBody = body
	}
	if stub, ok := c.responses[req.URL.Path]; ok {
		return stub.toResponse(), nil
	}
	return responseStub{status: http.StatusNotFound, body: []byte(`{"detail":"no stub"}`)}.toResponse(), nil
}

func (c *captureTransport) setJSONResponse(path string, status int, payload any) {
	body, _ := json.Marshal(payload)
	c.responses[path] = responseStub{
		status: status,
		header: http.Header{"Content-Type": []string{"application/json"}},
		body:   body,
	}
}

func (s responseStub) toResponse() *http.Response {
	header := http.Header{}
	for k, values := range s.header {
		header[k] = append([]string(nil), values...)
	}
	return &http.Response{
		StatusCode: s.status,
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader(s.body)),
	}
}
