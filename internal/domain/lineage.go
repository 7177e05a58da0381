package domain

import (
	"fmt"
	"strings"
	"time"
)

// NodeKind discriminates the payload carried by a LineageNode.
type NodeKind string

const (
	NodeKindSourceAsset    NodeKind = "source-asset"
	NodeKindEditedImage    NodeKind = "edited-image"
	NodeKindGeneratedVideo NodeKind = "generated-video"
)

// LineageNode is one derivable unit of a lineage. Exactly one payload pointer
// matching Kind is set.
type LineageNode struct {
	ID        string    `json:"id"`
	LineageID string    `json:"lineage_id"`
	SourceID  *string   `json:"source_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Kind      NodeKind  `json:"kind"`

	Asset       *SourceAsset    `json:"asset,omitempty"`
	EditedImage *EditedImage    `json:"edited_image,omitempty"`
	Video       *GeneratedVideo `json:"video,omitempty"`
}

// IsRoot reports whether the node has no source reference.
func (n LineageNode) IsRoot() bool {
	return n.SourceID == nil || *n.SourceID == ""
}

// Edge is a derivation relationship from a source node to a derived node.
type Edge struct {
	FromID string `json:"from_id"`
	ToID   string `json:"to_id"`
}

// TimelineGraph is a read-only ordered view of one lineage.
type TimelineGraph struct {
	LineageID string        `json:"lineage_id"`
	Nodes     []LineageNode `json:"nodes"`
	Edges     []Edge        `json:"edges"`
}

// IndexOf returns the position of the node with the given id, or -1.
func (g TimelineGraph) IndexOf(id string) int {
	for i, n := range g.Nodes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

// LineageContext describes where a new generation attaches in a lineage.
type LineageContext struct {
	ProjectID  string       `json:"project_id"`
	LineageID  string       `json:"lineage_id"`
	SourceID   string       `json:"source_id,omitempty"`
	SourceType SourceType   `json:"source_type,omitempty"`
	Sources    []SourceLink `json:"sources,omitempty"`
}

// Validate checks everything persistence will need once the remote job is
// done, so a bad context is rejected before anything is submitted.
func (lc LineageContext) Validate() error {
	if strings.TrimSpace(lc.ProjectID) == "" || strings.TrimSpace(lc.LineageID) == "" {
		return &ValidationError{Field: "lineage", Message: "project_id and lineage_id are required"}
	}
	if lc.SourceType != "" && !lc.SourceType.Valid() {
		return &ValidationError{Field: "source_type", Message: fmt.Sprintf("unsupported source type %q", lc.SourceType)}
	}
	for i, src := range lc.Sources {
		if !src.Type.Valid() {
			return &ValidationError{Field: fmt.Sprintf("sources[%d].type", i), Message: fmt.Sprintf("unsupported source type %q", src.Type)}
		}
		if strings.TrimSpace(src.ID) == "" {
			return &ValidationError{Field: fmt.Sprintf("sources[%d].id", i), Message: "is required"}
		}
	}
	return nil
}

// SourceLink names one image selected as input for a video composition.
type SourceLink struct {
	Type SourceType `json:"type"`
	ID   string     `json:"id"`
}
