package providers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"mediastudio/internal/domain"
)

// GenericErrorMessage is used when no message can be extracted from a
// provider failure.
const GenericErrorMessage = "Failed to retrieve task"

var httpWrapperPattern = regexp.MustCompile(`^HTTP \d+:\s*`)

// messageFields is the priority order of message-bearing JSON fields.
var messageFields = []string{"error", "message", "title", "detail"}

// ExtractErrorMessage pulls a human-readable message out of a provider error
// payload. The payload may be a plain message, an `HTTP <code>: <body>`
// wrapper, or a body embedding a JSON object. A payload that is neither
// wrapped nor JSON is returned as is.
func ExtractErrorMessage(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return GenericErrorMessage
	}

	if loc := httpWrapperPattern.FindStringIndex(s); loc != nil {
		rest := strings.TrimSpace(s[loc[1]:])
		if msg, ok := messageFromEmbeddedJSON(rest); ok {
			return msg
		}
		if rest == "" || strings.HasPrefix(rest, "{") || strings.HasPrefix(rest, "[") {
			return GenericErrorMessage
		}
		return rest
	}

	if msg, ok := messageFromEmbeddedJSON(s); ok {
		return msg
	}
	if json.Valid([]byte(s)) {
		return GenericErrorMessage
	}
	return raw
}

func messageFromEmbeddedJSON(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	var body map[string]any
	if err := json.Unmarshal([]byte(s[start:end+1]), &body); err != nil {
		return "", false
	}
	return messageFromObject(body)
}

func messageFromObject(body map[string]any) (string, bool) {
	for _, field := range messageFields {
		switch v := body[field].(type) {
		case string:
			if msg := strings.TrimSpace(v); msg != "" {
				return msg, true
			}
		case map[string]any:
			if msg, ok := messageFromObject(v); ok {
				return msg, true
			}
		}
	}
	return "", false
}

// NewProviderError builds a ProviderError from a non-success HTTP response body.
// An empty or unparseable body falls back to the HTTP status text.
func NewProviderError(provider string, statusCode int, body []byte) *domain.ProviderError {
	msg := strings.TrimSpace(ExtractErrorMessage(string(body)))
	if msg == GenericErrorMessage && statusCode > 0 {
		if text := http.StatusText(statusCode); text != "" {
			msg = text
		}
	}
	return &domain.ProviderError{Provider: provider, StatusCode: statusCode, Message: msg}
}

// IsTransient reports whether a status-check failure is worth retrying:
// network failures, throttling and server errors.
func IsTransient(err error) bool {
	var pe *domain.ProviderError
	if !errors.As(err, &pe) {
		return true
	}
	return pe.StatusCode == 0 || pe.StatusCode == http.StatusTooManyRequests || pe.StatusCode >= http.StatusInternalServerError
}

// DoJSON sends req and decodes a 2xx JSON body into out. Non-2xx responses
// become ProviderErrors; transport failures become ProviderErrors without a
// status code. The raw body is returned for callers that keep it.
func DoJSON(client *http.Client, req *http.Request, provider string, out any) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, &domain.ProviderError{Provider: provider, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &domain.ProviderError{Provider: provider, StatusCode: resp.StatusCode, Message: "read response: " + err.Error(), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return raw, NewProviderError(provider, resp.StatusCode, raw)
	}

	if out != nil && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return raw, &domain.ProviderError{Provider: provider, StatusCode: resp.StatusCode, Message: fmt.Sprintf("decode response: %v", err), Err: err}
		}
	}
	return raw, nil
}
