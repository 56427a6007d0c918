package types

import (
	"image"
	"time"
)

// PhotoStatus tracks where a photo sits in the ingest pipeline.
type PhotoStatus string

const (
	StatusPending  PhotoStatus = "pending"
	StatusAccepted PhotoStatus = "accepted"
	StatusRejected PhotoStatus = "rejected"
)

// PhotoRecord holds the persistent state for one observed photo file.
// Records are never deleted; status is the only field that changes.
type PhotoRecord struct {
	ID           int64       `json:"id"`
	Path         string      `json:"path"`
	ModifiedAt   string      `json:"modified_at"`
	Status       PhotoStatus `json:"status"`
	RejectReason string      `json:"reject_reason,omitempty"`
	Width        int         `json:"width"`
	Height       int         `json:"height"`
}

// IngestEvent is emitted by the watcher when a photo file appears or changes.
type IngestEvent struct {
	Path    string
	ModTime time.Time
}

// CornerRole identifies which template corner a marker belongs to.
type CornerRole int

const (
	TopLeft CornerRole = iota
	TopRight
	BottomRight
	BottomLeft
)

func (r CornerRole) String() string {
	switch r {
	case TopLeft:
		return "top-left"
	case TopRight:
		return "top-right"
	case BottomRight:
		return "bottom-right"
	case BottomLeft:
		return "bottom-left"
	}
	return "unknown"
}

// Point2f is a sub-pixel image coordinate.
type Point2f struct {
	X, Y float32
}

// MarkerSet holds the four detected marker anchors in TL, TR, BR, BL order.
type MarkerSet [4]Point2f

// Sprite is one extracted fish: an alpha-masked RGBA image plus the
// photo it came from. Immutable once built.
type Sprite struct {
	ID         string
	Image      *image.RGBA
	Width      int
	Height     int
	SourcePath string
}
