package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"mediastudio/internal/domain"
	"mediastudio/internal/providers"
)

type generationRequest struct {
	Kind    domain.JobKind        `json:"kind"`
	Input   domain.JobInput       `json:"input"`
	Lineage domain.LineageContext `json:"lineage"`
}

// CreateGeneration validates and enqueues a generation for the worker.
func (a *App) CreateGeneration(w http.ResponseWriter, r *http.Request) {
	var body generationRequest
	if err := decodeJSON(r, &body); err != nil {
		a.fail(w, r, err)
		return
	}
	if err := providers.Validate(body.Kind, body.Input); err != nil {
		a.fail(w, r, err)
		return
	}
	if err := body.Lineage.Validate(); err != nil {
		a.fail(w, r, err)
		return
	}

	req, err := a.Requests.Enqueue(r.Context(), &domain.GenerationRequest{
		Kind:    body.Kind,
		Input:   body.Input,
		Lineage: body.Lineage,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusAccepted, map[string]any{"id": req.ID, "status": req.Status})
}

func (a *App) GetGeneration(w http.ResponseWriter, r *http.Request) {
	req, err := a.Requests.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, req)
}
