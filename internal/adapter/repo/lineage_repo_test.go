package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediastudio/internal/domain"
	"mediastudio/internal/sqlinline"
)

var created = time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func TestCreateEditedImageAssignsIDAndCreatedAt(t *testing.T) {
	exec := newStubExecutor()
	exec.row[sqlinline.QInsertEditedImage] = []any{created}
	repo := NewLineageRepository(exec)

	src := strPtr("7b0c9a3e-9d6b-4b53-a3f1-3b8b5b1d1e10")
	out, err := repo.CreateEditedImage(context.Background(), &domain.EditedImage{
		ProjectID:  "p",
		LineageID:  "l",
		SourceID:   src,
		SourceType: domain.SourceTypeAsset,
		Prompt:     "red",
		Provider:   "replicate",
		ImageURL:   "https://x/a.png",
	})
	require.NoError(t, err)
	_, err = uuid.Parse(out.ID)
	assert.NoError(t, err)
	assert.Equal(t, created, out.CreatedAt)

	require.Len(t, exec.calls, 1)
	args := exec.calls[0].args
	assert.Equal(t, out.ID, args[0])
	assert.Equal(t, src, args[3])
	assert.Equal(t, "asset", args[4])
	assert.Equal(t, "https://x/a.png", args[8])
}

func TestCreateGeneratedVideoDefaultsStatus(t *testing.T) {
	exec := newStubExecutor()
	exec.row[sqlinline.QInsertGeneratedVideo] = []any{created}
	repo := NewLineageRepository(exec)

	out, err := repo.CreateGeneratedVideo(context.Background(), &domain.GeneratedVideo{ID: "given", LineageID: "l"})
	require.NoError(t, err)
	assert.Equal(t, "given", out.ID)
	assert.Equal(t, domain.VideoStatusProcessing, out.Status)
	assert.Equal(t, "processing", exec.calls[0].args[7])
}

func TestCreateVideoSource(t *testing.T) {
	exec := newStubExecutor()
	exec.row[sqlinline.QInsertVideoSource] = []any{"vs-1"}
	repo := NewLineageRepository(exec)

	vs, err := repo.CreateVideoSource(context.Background(), "v", domain.SourceTypeEditedImage, "img", 2)
	require.NoError(t, err)
	assert.Equal(t, domain.VideoSource{ID: "vs-1", VideoID: "v", SourceType: domain.SourceTypeEditedImage, SourceID: "img", SortOrder: 2}, *vs)

	_, err = repo.CreateVideoSource(context.Background(), "v", "video", "x", 0)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestCreateWrapsDatabaseErrors(t *testing.T) {
	exec := newStubExecutor()
	dbErr := errors.New("unique violation")
	exec.rowErr[sqlinline.QInsertEditedImage] = dbErr
	repo := NewLineageRepository(exec)

	_, err := repo.CreateEditedImage(context.Background(), &domain.EditedImage{})
	require.ErrorIs(t, err, dbErr)
	assert.Contains(t, err.Error(), "insert edited image")
}

func TestListByLineageMergesAllKinds(t *testing.T) {
	exec := newStubExecutor()
	exec.rows[sqlinline.QSelectLineageAssets] = [][]any{
		{"a1", "p", "l", "user-uploads", "u1/shoe.png", "image/png", created},
	}
	exec.rows[sqlinline.QSelectLineageEditedImages] = [][]any{
		{"e1", "p", "l", strPtr("a1"), "asset", "red", "replicate", "pred", "https://x/e1.png", "", "1:1", created.Add(time.Minute)},
	}
	exec.rows[sqlinline.QSelectLineageVideos] = [][]any{
		{"v1", "p", "l", strPtr("e1"), "spin", "runway", "t1", "completed", "https://x/v1.mp4", "1280:720", "gen4_turbo", created.Add(2 * time.Minute)},
	}
	repo := NewLineageRepository(exec)

	nodes, err := repo.ListByLineage(context.Background(), "l")
	require.NoError(t, err)
	require.Len(t, nodes, 3)

	assert.Equal(t, domain.NodeKindSourceAsset, nodes[0].Kind)
	assert.True(t, nodes[0].IsRoot())
	assert.Equal(t, "user-uploads", nodes[0].Asset.Bucket)

	assert.Equal(t, domain.NodeKindEditedImage, nodes[1].Kind)
	assert.Equal(t, "a1", *nodes[1].SourceID)
	assert.Equal(t, domain.SourceTypeAsset, nodes[1].EditedImage.SourceType)

	assert.Equal(t, domain.NodeKindGeneratedVideo, nodes[2].Kind)
	assert.Equal(t, domain.VideoStatusCompleted, nodes[2].Video.Status)
	assert.Equal(t, "e1", *nodes[2].SourceID)
}

func TestCachedLineageStoreInvalidatesOnWrite(t *testing.T) {
	exec := newStubExecutor()
	exec.rows[sqlinline.QSelectLineageAssets] = [][]any{
		{"a1", "p", "l", "user-uploads", "u1/shoe.png", "image/png", created},
	}
	exec.row[sqlinline.QInsertEditedImage] = []any{created}
	cached, err := NewCachedLineageStore(NewLineageRepository(exec), 4)
	require.NoError(t, err)

	countLists := func() int {
		n := 0
		for _, c := range exec.calls {
			if c.query == sqlinline.QSelectLineageAssets {
				n++
			}
		}
		return n
	}

	first, err := cached.ListByLineage(context.Background(), "l")
	require.NoError(t, err)
	first[0].ID = "mutated"
	second, err := cached.ListByLineage(context.Background(), "l")
	require.NoError(t, err)
	assert.Equal(t, 1, countLists())
	assert.Equal(t, "a1", second[0].ID)

	_, err = cached.CreateEditedImage(context.Background(), &domain.EditedImage{LineageID: "l"})
	require.NoError(t, err)
	_, err = cached.ListByLineage(context.Background(), "l")
	require.NoError(t, err)
	assert.Equal(t, 2, countLists())
}
