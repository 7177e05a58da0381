package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mediastudio/internal/domain"
	"mediastudio/internal/infra"
	"mediastudio/internal/sqlinline"
)

// LineageRepositoryPG implements domain.LineageStore on PostgreSQL.
type LineageRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewLineageRepository constructs a lineage repository over sql.
func NewLineageRepository(sql infra.SQLExecutor) *LineageRepositoryPG {
	return &LineageRepositoryPG{sql: sql}
}

// CreateEditedImage inserts img and returns a copy carrying its id and
// creation time.
func (r *LineageRepositoryPG) CreateEditedImage(ctx context.Context, img *domain.EditedImage) (*domain.EditedImage, error) {
	out := *img
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	var createdAt time.Time
	err := r.sql.QueryRow(ctx, sqlinline.QInsertEditedImage,
		out.ID,
		out.ProjectID,
		out.LineageID,
		out.SourceID,
		string(out.SourceType),
		out.Prompt,
		out.Provider,
		out.ProviderJobID,
		out.ImageURL,
		out.StoragePath,
		out.AspectRatio,
	).Scan(&createdAt)
	if err != nil {
		return nil, fmt.Errorf("repo: insert edited image: %w", err)
	}
	out.CreatedAt = createdAt
	return &out, nil
}

// CreateGeneratedVideo inserts video and returns a copy carrying its id and
// creation time.
func (r *LineageRepositoryPG) CreateGeneratedVideo(ctx context.Context, video *domain.GeneratedVideo) (*domain.GeneratedVideo, error) {
	out := *video
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	if out.Status == "" {
		out.Status = domain.VideoStatusProcessing
	}
	var createdAt time.Time
	err := r.sql.QueryRow(ctx, sqlinline.QInsertGeneratedVideo,
		out.ID,
		out.ProjectID,
		out.LineageID,
		out.SourceID,
		out.Prompt,
		out.Provider,
		out.ProviderJobID,
		string(out.Status),
		out.VideoURL,
		out.Ratio,
		out.Model,
	).Scan(&createdAt)
	if err != nil {
		return nil, fmt.Errorf("repo: insert generated video: %w", err)
	}
	out.CreatedAt = createdAt
	return &out, nil
}

// CreateVideoSource links videoID to one of its input images. Writing the same
// sort order twice replaces the earlier link.
func (r *LineageRepositoryPG) CreateVideoSource(ctx context.Context, videoID string, sourceType domain.SourceType, sourceID string, sortOrder int) (*domain.VideoSource, error) {
	switch sourceType {
	case domain.SourceTypeAsset, domain.SourceTypeEditedImage:
	default:
		return nil, &domain.ValidationError{Field: "source_type", Message: fmt.Sprintf("unsupported source type %q", sourceType)}
	}
	vs := domain.VideoSource{
		ID:         uuid.NewString(),
		VideoID:    videoID,
		SourceType: sourceType,
		SourceID:   sourceID,
		SortOrder:  sortOrder,
	}
	if err := r.sql.QueryRow(ctx, sqlinline.QInsertVideoSource, vs.ID, videoID, string(sourceType), sourceID, sortOrder).Scan(&vs.ID); err != nil {
		return nil, fmt.Errorf("repo: insert video source: %w", err)
	}
	return &vs, nil
}

// ListByLineage returns every asset, edited image and video of lineageID as
// lineage nodes, in no particular order.
func (r *LineageRepositoryPG) ListByLineage(ctx context.Context, lineageID string) ([]domain.LineageNode, error) {
	var nodes []domain.LineageNode

	rows, err := r.sql.Query(ctx, sqlinline.QSelectLineageAssets, lineageID)
	if err != nil {
		return nil, fmt.Errorf("repo: list lineage assets: %w", err)
	}
	for rows.Next() {
		a := &domain.SourceAsset{}
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.LineageID, &a.Bucket, &a.Path, &a.MIME, &a.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("repo: scan lineage asset: %w", err)
		}
		nodes = append(nodes, a.LineageNode())
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo: list lineage assets: %w", err)
	}

	rows, err = r.sql.Query(ctx, sqlinline.QSelectLineageEditedImages, lineageID)
	if err != nil {
		return nil, fmt.Errorf("repo: list lineage images: %w", err)
	}
	for rows.Next() {
		e := &domain.EditedImage{}
		var sourceType string
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.LineageID, &e.SourceID, &sourceType,
			&e.Prompt, &e.Provider, &e.ProviderJobID, &e.ImageURL, &e.StoragePath,
			&e.AspectRatio, &e.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("repo: scan lineage image: %w", err)
		}
		e.SourceType = domain.SourceType(sourceType)
		nodes = append(nodes, e.LineageNode())
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo: list lineage images: %w", err)
	}

	rows, err = r.sql.Query(ctx, sqlinline.QSelectLineageVideos, lineageID)
	if err != nil {
		return nil, fmt.Errorf("repo: list lineage videos: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		v := &domain.GeneratedVideo{}
		var status string
		if err := rows.Scan(&v.ID, &v.ProjectID, &v.LineageID, &v.SourceID, &v.Prompt, &v.Provider,
			&v.ProviderJobID, &status, &v.VideoURL, &v.Ratio, &v.Model, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("repo: scan lineage video: %w", err)
		}
		v.Status = domain.VideoStatus(status)
		nodes = append(nodes, v.LineageNode())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo: list lineage videos: %w", err)
	}
	return nodes, nil
}

var _ domain.LineageStore = (*LineageRepositoryPG)(nil)
