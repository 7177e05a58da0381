package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"os"

	"mediastudio/internal/domain"
	"mediastudio/internal/infra"
	"mediastudio/internal/lineage"
	"mediastudio/internal/middleware"
	"mediastudio/internal/providers"
)

// BlobOpener reads private blobs for the storage download endpoint.
type BlobOpener interface {
	Open(ctx context.Context, bucket, key string) (*os.File, fs.FileInfo, error)
}

// TokenVerifier checks signed-URL tokens.
type TokenVerifier interface {
	Verify(token, bucket, path string) error
}

// App carries the collaborators of every HTTP handler.
type App struct {
	Providers *providers.Registry
	Requests  domain.RequestRepository
	Lineage   domain.LineageStore
	Blobs     domain.BlobStore
	Files     BlobOpener
	// Signer issues the URLs handed to providers. It should be capped at
	// storage.ProviderExpiry.
	Signer   domain.URLSigner
	Verifier TokenVerifier
	Builder  *lineage.Builder
	Logger   *infra.Logger
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (a *App) error(w http.ResponseWriter, code int, kind, msg string) {
	a.json(w, code, map[string]errorBody{"error": {Kind: kind, Message: msg}})
}

// fail maps err onto a status code and a localized message.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := HTTPStatus(err)
	kind := string(domain.KindOf(err))
	msg := domain.UserMessage(err, middleware.LocaleFromContext(r.Context()))
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		kind, msg = "unauthorized", "missing user context"
	case errors.Is(err, domain.ErrForbidden):
		kind, msg = "forbidden", "access to this object is not allowed"
	}

	ev := infra.LoggerOrDiscard(a.Logger).Warn()
	if code >= http.StatusInternalServerError {
		ev = infra.LoggerOrDiscard(a.Logger).Error()
	}
	ev.Err(err).
		Str("request_id", middleware.RequestIDFromContext(r.Context())).
		Str("path", r.URL.Path).
		Int("status", code).
		Msg("request failed")

	a.error(w, code, kind, msg)
}

// HTTPStatus maps an error from the domain taxonomy onto an HTTP status.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	}

	switch domain.KindOf(err) {
	case domain.ErrorKindValidation:
		return http.StatusBadRequest
	case domain.ErrorKindNotFound:
		return http.StatusNotFound
	case domain.ErrorKindTimeout:
		return http.StatusGatewayTimeout
	case domain.ErrorKindProvider:
		var pe *domain.ProviderError
		if errors.As(err, &pe) && pe.StatusCode == http.StatusNotFound {
			return http.StatusNotFound
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return &domain.ValidationError{Field: "body", Message: "invalid JSON payload"}
	}
	return nil
}
