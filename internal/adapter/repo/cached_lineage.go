package repo

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"mediastudio/internal/domain"
)

// CachedLineageStore keeps recent ListByLineage results in an LRU cache.
// Writes through the store drop the cached entry of the affected lineage.
type CachedLineageStore struct {
	next  domain.LineageStore
	cache *lru.Cache[string, []domain.LineageNode]
}

// NewCachedLineageStore wraps next with a cache of size lineages (256 when
// size is not positive).
func NewCachedLineageStore(next domain.LineageStore, size int) (*CachedLineageStore, error) {
	if size <= 0 {
		size = 256
	}
	cache, err := lru.New[string, []domain.LineageNode](size)
	if err != nil {
		return nil, fmt.Errorf("repo: create lineage cache: %w", err)
	}
	return &CachedLineageStore{next: next, cache: cache}, nil
}

func (c *CachedLineageStore) CreateEditedImage(ctx context.Context, img *domain.EditedImage) (*domain.EditedImage, error) {
	out, err := c.next.CreateEditedImage(ctx, img)
	if err == nil {
		c.cache.Remove(out.LineageID)
	}
	return out, err
}

func (c *CachedLineageStore) CreateGeneratedVideo(ctx context.Context, video *domain.GeneratedVideo) (*domain.GeneratedVideo, error) {
	out, err := c.next.CreateGeneratedVideo(ctx, video)
	if err == nil {
		c.cache.Remove(out.LineageID)
	}
	return out, err
}

func (c *CachedLineageStore) CreateVideoSource(ctx context.Context, videoID string, sourceType domain.SourceType, sourceID string, sortOrder int) (*domain.VideoSource, error) {
	return c.next.CreateVideoSource(ctx, videoID, sourceType, sourceID, sortOrder)
}

func (c *CachedLineageStore) ListByLineage(ctx context.Context, lineageID string) ([]domain.LineageNode, error) {
	if nodes, ok := c.cache.Get(lineageID); ok {
		return append([]domain.LineageNode(nil), nodes...), nil
	}
	nodes, err := c.next.ListByLineage(ctx, lineageID)
	if err != nil {
		return nil, err
	}
	c.cache.Add(lineageID, append([]domain.LineageNode(nil), nodes...))
	return nodes, nil
}

var _ domain.LineageStore = (*CachedLineageStore)(nil)
