package models

import (
	"errors"
	"strings"
)

// Mode identifies which query shape is sent to Weaviate.
type Mode string

const (
	ModeListing Mode = "listing"
	ModeText    Mode = "text"
	ModeImage   Mode = "image"
	ModeSimilar Mode = "similar"
)

var (
	ErrEmptyText  = errors.New("query text is empty")
	ErrEmptyImage = errors.New("image payload is empty")
	ErrEmptyID    = errors.New("object id is empty")
)

// Query is one of ListingQuery, TextQuery, ImageQuery or SimilarQuery.
// Each variant carries only the parameter valid for its mode.
type Query interface {
	Mode() Mode
	Validate() error
	isQuery()
}

// ListingQuery lists objects without a semantic filter.
type ListingQuery struct{}

// TextQuery searches by a natural-language concept.
type TextQuery struct {
	Text string
}

// ImageQuery searches by a reference image. Image holds raw base64 without a
// data URL prefix.
type ImageQuery struct {
	Image string
}

// SimilarQuery searches for objects near an existing object.
type SimilarQuery struct {
	ID string
}

func (ListingQuery) Mode() Mode { return ModeListing }
func (TextQuery) Mode() Mode    { return ModeText }
func (ImageQuery) Mode() Mode   { return ModeImage }
func (SimilarQuery) Mode() Mode { return ModeSimilar }

func (ListingQuery) Validate() error { return nil }

func (q TextQuery) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return ErrEmptyText
	}
	return nil
}

func (q ImageQuery) Validate() error {
	if q.Image == "" {
		return ErrEmptyImage
	}
	return nil
}

func (q SimilarQuery) Validate() error {
	if strings.TrimSpace(q.ID) == "" {
		return ErrEmptyID
	}
	return nil
}

func (ListingQuery) isQuery() {}
func (TextQuery) isQuery()    {}
func (ImageQuery) isQuery()   {}
func (SimilarQuery) isQuery() {}

// NewImageQuery builds an ImageQuery from either raw base64 or a data URL
// such as "data:image/png;base64,iVBOR...".
func NewImageQuery(payload string) ImageQuery {
	payload = strings.TrimSpace(payload)
	if strings.HasPrefix(payload, "data:") {
		if i := strings.Index(payload, ","); i >= 0 {
			payload = payload[i+1:]
		}
	}
	return ImageQuery{Image: payload}
}
