package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"mediastudio/internal/domain"
	"mediastudio/internal/infra"
	"mediastudio/internal/sqlinline"
)

// RequestRepositoryPG implements domain.RequestRepository on the
// generation_requests table.
type RequestRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewRequestRepository(sql infra.SQLExecutor) *RequestRepositoryPG {
	return &RequestRepositoryPG{sql: sql}
}

// Enqueue stores req as queued and returns the stored copy.
func (r *RequestRepositoryPG) Enqueue(ctx context.Context, req *domain.GenerationRequest) (*domain.GenerationRequest, error) {
	out := *req
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	input, err := json.Marshal(out.Input)
	if err != nil {
		return nil, fmt.Errorf("repo: encode request input: %w", err)
	}
	lineage, err := json.Marshal(out.Lineage)
	if err != nil {
		return nil, fmt.Errorf("repo: encode request lineage: %w", err)
	}
	if err := r.sql.QueryRow(ctx, sqlinline.QEnqueueGenerationRequest, out.ID, string(out.Kind), input, lineage).
		Scan(&out.CreatedAt, &out.UpdatedAt); err != nil {
		return nil, fmt.Errorf("repo: enqueue generation request: %w", err)
	}
	out.Status = domain.RequestStatusQueued
	return &out, nil
}

// Claim marks the oldest queued request as running and returns it. Concurrent
// claimers never receive the same row. It returns domain.ErrQueueEmpty when
// nothing is queued.
func (r *RequestRepositoryPG) Claim(ctx context.Context) (*domain.GenerationRequest, error) {
	var (
		req            domain.GenerationRequest
		kind, status   string
		input, lineage []byte
	)
	err := r.sql.QueryRow(ctx, sqlinline.QClaimGenerationRequest).
		Scan(&req.ID, &kind, &input, &lineage, &status, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrQueueEmpty
		}
		return nil, fmt.Errorf("repo: claim generation request: %w", err)
	}
	req.Kind = domain.JobKind(kind)
	req.Status = domain.RequestStatus(status)
	if err := decodePayload(&req, input, lineage); err != nil {
		return &req, err
	}
	return &req, nil
}

// Complete records the outcome of a claimed request.
func (r *RequestRepositoryPG) Complete(ctx context.Context, id string, outcome domain.RequestOutcome) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QCompleteGenerationRequest,
		id,
		string(outcome.Status),
		string(outcome.ErrorKind),
		outcome.ErrorMessage,
		string(outcome.ResultKind),
		outcome.ResultID,
		outcome.ProviderJobID,
	)
	if err != nil {
		return fmt.Errorf("repo: complete generation request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID returns one request or domain.ErrNotFound.
func (r *RequestRepositoryPG) GetByID(ctx context.Context, id string) (*domain.GenerationRequest, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	var (
		req                               domain.GenerationRequest
		kind, status, errKind, resultKind string
		input, lineage                    []byte
	)
	err := r.sql.QueryRow(ctx, sqlinline.QSelectGenerationRequest, id).Scan(
		&req.ID, &kind, &input, &lineage, &status,
		&errKind, &req.ErrorMessage,
		&resultKind, &req.ResultID, &req.ProviderJobID,
		&req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("repo: get generation request: %w", err)
	}
	req.Kind = domain.JobKind(kind)
	req.Status = domain.RequestStatus(status)
	req.ErrorKind = domain.ErrorKind(errKind)
	req.ResultKind = domain.NodeKind(resultKind)
	if err := decodePayload(&req, input, lineage); err != nil {
		return nil, err
	}
	return &req, nil
}

func decodePayload(req *domain.GenerationRequest, input, lineage []byte) error {
	if err := json.Unmarshal(input, &req.Input); err != nil {
		return fmt.Errorf("repo: decode request %s input: %w", req.ID, err)
	}
	if len(lineage) > 0 {
		if err := json.Unmarshal(lineage, &req.Lineage); err != nil {
			return fmt.Errorf("repo: decode request %s lineage: %w", req.ID, err)
		}
	}
	return nil
}

var _ domain.RequestRepository = (*RequestRepositoryPG)(nil)
