package domain

import "time"

// SourceType identifies what a video source or edited image was derived from.
type SourceType string

const (
	SourceTypeAsset       SourceType = "asset"
	SourceTypeEditedImage SourceType = "edited-image"
)

// Valid reports whether t can be stored as a source link.
func (t SourceType) Valid() bool {
	return t == SourceTypeAsset || t == SourceTypeEditedImage
}

// VideoStatus enumerates persisted video lifecycle states.
type VideoStatus string

const (
	VideoStatusProcessing VideoStatus = "processing"
	VideoStatusCompleted  VideoStatus = "completed"
	VideoStatusFailed     VideoStatus = "failed"
)

// SourceAsset is an original user upload and the usual lineage root.
type SourceAsset struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	LineageID string    `json:"lineage_id"`
	Bucket    string    `json:"bucket"`
	Path      string    `json:"path"`
	MIME      string    `json:"mime"`
	CreatedAt time.Time `json:"created_at"`
}

// EditedImage is an image produced by the image-edit provider (or the video
// provider in image-generation mode).
type EditedImage struct {
	ID            string     `json:"id"`
	ProjectID     string     `json:"project_id"`
	LineageID     string     `json:"lineage_id"`
	SourceID      *string    `json:"source_id,omitempty"`
	SourceType    SourceType `json:"source_type,omitempty"`
	Prompt        string     `json:"prompt"`
	Provider      string     `json:"provider"`
	ProviderJobID string     `json:"provider_job_id"`
	ImageURL      string     `json:"image_url"`
	StoragePath   string     `json:"storage_path,omitempty"`
	AspectRatio   string     `json:"aspect_ratio,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// GeneratedVideo is a video produced by the video provider.
type GeneratedVideo struct {
	ID            string      `json:"id"`
	ProjectID     string      `json:"project_id"`
	LineageID     string      `json:"lineage_id"`
	SourceID      *string     `json:"source_id,omitempty"`
	Prompt        string      `json:"prompt"`
	Provider      string      `json:"provider"`
	ProviderJobID string      `json:"provider_job_id"`
	Status        VideoStatus `json:"status"`
	VideoURL      string      `json:"video_url"`
	Ratio         string      `json:"ratio,omitempty"`
	Model         string      `json:"model,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}

// VideoSource links a generated video to one of the images it was composed
// from.
type VideoSource struct {
	ID         string     `json:"id"`
	VideoID    string     `json:"video_id"`
	SourceType SourceType `json:"source_type"`
	SourceID   string     `json:"source_id"`
	SortOrder  int        `json:"sort_order"`
}

// LineageNode converts the asset into its timeline representation.
func (a *SourceAsset) LineageNode() LineageNode {
	return LineageNode{ID: a.ID, LineageID: a.LineageID, CreatedAt: a.CreatedAt, Kind: NodeKindSourceAsset, Asset: a}
}

// LineageNode converts the edited image into its timeline representation.
func (e *EditedImage) LineageNode() LineageNode {
	return LineageNode{ID: e.ID, LineageID: e.LineageID, SourceID: e.SourceID, CreatedAt: e.CreatedAt, Kind: NodeKindEditedImage, EditedImage: e}
}

// LineageNode converts the video into its timeline representation.
func (v *GeneratedVideo) LineageNode() LineageNode {
	return LineageNode{ID: v.ID, LineageID: v.LineageID, SourceID: v.SourceID, CreatedAt: v.CreatedAt, Kind: NodeKindGeneratedVideo, Video: v}
}
