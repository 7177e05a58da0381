package repo

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediastudio/internal/domain"
	"mediastudio/internal/sqlinline"
)

func TestEnqueueEncodesPayload(t *testing.T) {
	exec := newStubExecutor()
	exec.row[sqlinline.QEnqueueGenerationRequest] = []any{created, created}
	repo := NewRequestRepository(exec)

	out, err := repo.Enqueue(context.Background(), &domain.GenerationRequest{
		Kind:    domain.JobKindVideoGenerate,
		Input:   domain.JobInput{Mode: domain.VideoModeImageToVideo, PromptImage: "https://x/a.png"},
		Lineage: domain.LineageContext{ProjectID: "p", LineageID: "l"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, out.ID)
	assert.Equal(t, domain.RequestStatusQueued, out.Status)
	assert.Equal(t, created, out.CreatedAt)

	args := exec.calls[0].args
	assert.Equal(t, "video-generate", args[1])
	var input map[string]any
	require.NoError(t, json.Unmarshal(args[2].([]byte), &input))
	assert.Equal(t, "image-to-video", input["mode"])
	assert.Equal(t, "https://x/a.png", input["promptImage"])
}

func TestClaimDecodesRow(t *testing.T) {
	exec := newStubExecutor()
	exec.row[sqlinline.QClaimGenerationRequest] = []any{
		"r1", "image-edit", []byte(`{"prompt":"red"}`), []byte(`{"project_id":"p","lineage_id":"l","source_id":"a1"}`),
		"running", created, created,
	}
	repo := NewRequestRepository(exec)

	req, err := repo.Claim(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.JobKindImageEdit, req.Kind)
	assert.Equal(t, domain.RequestStatusRunning, req.Status)
	assert.Equal(t, "red", req.Input.Prompt)
	assert.Equal(t, "a1", req.Lineage.SourceID)
}

func TestClaimEmptyQueue(t *testing.T) {
	repo := NewRequestRepository(newStubExecutor())
	_, err := repo.Claim(context.Background())
	assert.ErrorIs(t, err, domain.ErrQueueEmpty)
}

func TestClaimReturnsRequestWithUndecodableInput(t *testing.T) {
	exec := newStubExecutor()
	exec.row[sqlinline.QClaimGenerationRequest] = []any{"r1", "image-edit", []byte(`not json`), []byte(`{}`), "running", created, created}
	req, err := NewRequestRepository(exec).Claim(context.Background())
	require.Error(t, err)
	require.NotNil(t, req)
	assert.Equal(t, "r1", req.ID)
}

func TestComplete(t *testing.T) {
	exec := newStubExecutor()
	repo := NewRequestRepository(exec)

	err := repo.Complete(context.Background(), "r1", domain.RequestOutcome{
		Status:       domain.RequestStatusFailed,
		ErrorKind:    domain.ErrorKindProvider,
		ErrorMessage: "Too Many Requests",
	})
	require.NoError(t, err)
	args := exec.calls[0].args
	assert.Equal(t, []any{"r1", "failed", "provider", "Too Many Requests", "", "", ""}, args)

	exec.tag = pgconn.NewCommandTag("UPDATE 0")
	assert.ErrorIs(t, repo.Complete(context.Background(), "missing", domain.RequestOutcome{Status: domain.RequestStatusDone}), domain.ErrNotFound)

	exec.execErr = errors.New("conn closed")
	assert.Error(t, repo.Complete(context.Background(), "r1", domain.RequestOutcome{}))
}

func TestGetByID(t *testing.T) {
	const id = "0f8b7e0c-1d7e-4c36-9d0a-2ad3c3a7b9f1"
	exec := newStubExecutor()
	exec.row[sqlinline.QSelectGenerationRequest] = []any{
		id, "video-generate", []byte(`{"mode":"text-to-video","promptText":"waves"}`), []byte(`{"lineage_id":"l"}`),
		"done", "", "", "generated-video", "v1", "t1", created, created,
	}
	exec.rowKey[sqlinline.QSelectGenerationRequest] = id
	repo := NewRequestRepository(exec)

	req, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusDone, req.Status)
	assert.Equal(t, domain.NodeKindGeneratedVideo, req.ResultKind)
	assert.Equal(t, "v1", req.ResultID)
	assert.Equal(t, "waves", req.Input.PromptText)

	_, err = repo.GetByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = repo.GetByID(context.Background(), "6c1f1f7e-0000-4000-8000-000000000000")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
