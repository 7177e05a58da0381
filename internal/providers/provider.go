// Package providers normalizes the image-edit and video-generation APIs into
// one submit/status contract.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"mediastudio/internal/domain"
)

// Status is the normalized answer of a provider status check.
type Status struct {
	State         domain.JobState `json:"state"`
	Output        []string        `json:"output,omitempty"`
	Progress      *float64        `json:"progress,omitempty"`
	FailureReason string          `json:"failure_reason,omitempty"`
	FailureCode   string          `json:"failure_code,omitempty"`
	Raw           json.RawMessage `json:"raw,omitempty"`
}

// JobClient is implemented by each provider client.
type JobClient interface {
	Name() string
	Submit(ctx context.Context, input domain.JobInput) (string, error)
	Status(ctx context.Context, providerJobID string) (Status, error)
}

// Registry routes job kinds to their provider client.
type Registry struct {
	clients map[domain.JobKind]JobClient
}

// NewRegistry builds a registry for the image-edit and video-generate clients.
func NewRegistry(image, video JobClient) *Registry {
	return &Registry{clients: map[domain.JobKind]JobClient{
		domain.JobKindImageEdit:     image,
		domain.JobKindVideoGenerate: video,
	}}
}

// Client returns the client serving kind.
func (r *Registry) Client(kind domain.JobKind) (JobClient, error) {
	c, ok := r.clients[kind]
	if !ok || c == nil {
		return nil, &domain.ValidationError{Field: "kind", Message: fmt.Sprintf("unsupported job kind %q", kind)}
	}
	return c, nil
}

// Submit validates input and submits it to the provider serving kind.
func (r *Registry) Submit(ctx context.Context, kind domain.JobKind, input domain.JobInput) (string, error) {
	c, err := r.Client(kind)
	if err != nil {
		return "", err
	}
	if err := Validate(kind, input); err != nil {
		return "", err
	}
	return c.Submit(ctx, input)
}

// Status fetches the normalized status of a job of the given kind.
func (r *Registry) Status(ctx context.Context, kind domain.JobKind, providerJobID string) (Status, error) {
	c, err := r.Client(kind)
	if err != nil {
		return Status{}, err
	}
	return c.Status(ctx, providerJobID)
}

// ParseOutput accepts either a single URL or a list of URLs.
func ParseOutput(raw json.RawMessage) []string {
	if len(bytes.TrimSpace(raw)) == 0 || string(raw) == "null" {
		return nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if single = strings.TrimSpace(single); single != "" {
			return []string{single}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		out := make([]string, 0, len(many))
		for _, u := range many {
			if u = strings.TrimSpace(u); u != "" {
				out = append(out, u)
			}
		}
		return out
	}
	return nil
}
