package handlers

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"mediastudio/internal/domain"
)

// Download serves a private blob addressed by a signed URL.
func (a *App) Download(w http.ResponseWriter, r *http.Request) {
	bucket := chi.URLParam(r, "bucket")
	path, err := url.PathUnescape(chi.URLParam(r, "*"))
	if err != nil {
		a.fail(w, r, &domain.ValidationError{Field: "path", Message: "invalid escape sequence"})
		return
	}
	token := r.URL.Query().Get("token")
	if token == "" {
		a.fail(w, r, domain.ErrUnauthorized)
		return
	}
	if err := a.Verifier.Verify(token, bucket, path); err != nil {
		a.fail(w, r, err)
		return
	}

	f, info, err := a.Files.Open(r.Context(), bucket, path)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	defer f.Close()
	w.Header().Set("Cache-Control", "private, max-age=300")
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
