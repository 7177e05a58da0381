package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"mediastudio/internal/domain"
	"mediastudio/internal/middleware"
)

type timelineWarning struct {
	Kind    domain.ErrorKind `json:"kind"`
	Message string           `json:"message"`
	NodeIDs []string         `json:"node_ids"`
}

type timelineResponse struct {
	domain.TimelineGraph
	Warning *timelineWarning `json:"warning,omitempty"`
}

// Timeline returns the ordered graph of one lineage. Nodes caught in a source
// cycle are left out and reported in the warning.
func (a *App) Timeline(w http.ResponseWriter, r *http.Request) {
	lineageID := chi.URLParam(r, "lineage_id")
	nodes, err := a.Lineage.ListByLineage(r.Context(), lineageID)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	graph, err := a.Builder.Build(lineageID, nodes)
	resp := timelineResponse{TimelineGraph: graph}
	if err != nil {
		var integrity *domain.LineageIntegrityError
		if !errors.As(err, &integrity) {
			a.fail(w, r, err)
			return
		}
		resp.Warning = &timelineWarning{
			Kind:    domain.ErrorKindLineageIntegrity,
			Message: domain.UserMessage(err, middleware.LocaleFromContext(r.Context())),
			NodeIDs: integrity.NodeIDs,
		}
	}
	a.json(w, http.StatusOK, resp)
}
