package domain

import (
	"context"
	"time"
)

// LineageStore is the persistence contract consumed by the orchestrator and
// the timeline endpoint.
type LineageStore interface {
	CreateEditedImage(ctx context.Context, img *EditedImage) (*EditedImage, error)
	CreateGeneratedVideo(ctx context.Context, video *GeneratedVideo) (*GeneratedVideo, error)
	CreateVideoSource(ctx context.Context, videoID string, sourceType SourceType, sourceID string, sortOrder int) (*VideoSource, error)
	ListByLineage(ctx context.Context, lineageID string) ([]LineageNode, error)
}

// RequestRepository persists queued generation requests. Claim returns
// ErrQueueEmpty when there is nothing to do.
type RequestRepository interface {
	Enqueue(ctx context.Context, req *GenerationRequest) (*GenerationRequest, error)
	Claim(ctx context.Context) (*GenerationRequest, error)
	Complete(ctx context.Context, id string, outcome RequestOutcome) error
	GetByID(ctx context.Context, id string) (*GenerationRequest, error)
}

// URLSigner issues time-limited read URLs for private blobs.
type URLSigner interface {
	SignedURL(bucket, path string, expiry time.Duration) (string, error)
}

// BlobStore checks for and reads private blobs.
type BlobStore interface {
	Exists(ctx context.Context, bucket, path string) (bool, error)
}
