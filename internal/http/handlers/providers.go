package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"mediastudio/internal/domain"
	"mediastudio/internal/middleware"
	"mediastudio/internal/storage"
)

// providerSubmitRequest is a provider submit body plus an optional reference
// to a private object the provider should read.
type providerSubmitRequest struct {
	domain.JobInput
	SourceBucket string `json:"source_bucket,omitempty"`
	SourcePath   string `json:"source_path,omitempty"`
}

func (a *App) SubmitImage(w http.ResponseWriter, r *http.Request) {
	a.submit(w, r, domain.JobKindImageEdit)
}

func (a *App) SubmitVideo(w http.ResponseWriter, r *http.Request) {
	a.submit(w, r, domain.JobKindVideoGenerate)
}

func (a *App) ImageStatus(w http.ResponseWriter, r *http.Request) {
	a.status(w, r, domain.JobKindImageEdit)
}

func (a *App) VideoStatus(w http.ResponseWriter, r *http.Request) {
	a.status(w, r, domain.JobKindVideoGenerate)
}

func (a *App) submit(w http.ResponseWriter, r *http.Request, kind domain.JobKind) {
	var req providerSubmitRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	input := req.JobInput
	if req.SourcePath != "" {
		url, err := a.signOwnedSource(r.Context(), req.SourceBucket, req.SourcePath)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		if kind == domain.JobKindImageEdit {
			input.InputImage = url
		} else {
			input.PromptImage = url
		}
	}

	id, err := a.Providers.Submit(r.Context(), kind, input)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, map[string]string{"id": id})
}

func (a *App) status(w http.ResponseWriter, r *http.Request, kind domain.JobKind) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		a.fail(w, r, &domain.ValidationError{Field: "id", Message: "is required"})
		return
	}
	st, err := a.Providers.Status(r.Context(), kind, id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"id":             id,
		"status":         st.State,
		"output":         st.Output,
		"progress":       st.Progress,
		"failure_reason": st.FailureReason,
		"failure_code":   st.FailureCode,
	})
}

// signOwnedSource checks that the caller owns path and returns a short-lived
// URL the provider can fetch it from. The first path segment is the owner id.
func (a *App) signOwnedSource(ctx context.Context, bucket, path string) (string, error) {
	if bucket == "" {
		bucket = storage.BucketUserUploads
	}
	if err := storage.ValidateBucket(bucket); err != nil {
		return "", err
	}
	userID := middleware.UserIDFromContext(ctx)
	if userID == "" {
		return "", domain.ErrUnauthorized
	}
	path = strings.TrimPrefix(path, "/")
	owner, _, _ := strings.Cut(path, "/")
	if owner != userID {
		return "", domain.ErrForbidden
	}
	ok, err := a.Blobs.Exists(ctx, bucket, path)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", domain.ErrNotFound
	}
	return a.Signer.SignedURL(bucket, path, storage.ProviderExpiry)
}
