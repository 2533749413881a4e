package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryValidate(t *testing.T) {
	tests := []struct {
		name    string
		query   Query
		wantErr error
	}{
		{"listing", ListingQuery{}, nil},
		{"text", TextQuery{Text: "sunset"}, nil},
		{"blank text", TextQuery{Text: "   "}, ErrEmptyText},
		{"image", ImageQuery{Image: "aGVsbG8="}, nil},
		{"empty image", ImageQuery{}, ErrEmptyImage},
		{"similar", SimilarQuery{ID: "abc"}, nil},
		{"empty id", SimilarQuery{}, ErrEmptyID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, tt.query.Validate())
		})
	}
}

func TestQueryMode(t *testing.T) {
	assert.Equal(t, ModeListing, ListingQuery{}.Mode())
	assert.Equal(t, ModeText, TextQuery{}.Mode())
	assert.Equal(t, ModeImage, ImageQuery{}.Mode())
	assert.Equal(t, ModeSimilar, SimilarQuery{}.Mode())
}

func TestNewImageQueryStripsDataURL(t *testing.T) {
	assert.Equal(t, "iVBORw0K", NewImageQuery("data:image/png;base64,iVBORw0K").Image)
	assert.Equal(t, "iVBORw0K", NewImageQuery(" iVBORw0K\n").Image)
	assert.Equal(t, "", NewImageQuery("data:image/png;base64,").Image)
}

func TestRecordRelevance(t *testing.T) {
	_, ok := Record{ID: "a"}.Relevance()
	assert.False(t, ok)

	d := 0.25
	rel, ok := Record{ID: "a", Distance: &d}.Relevance()
	assert.True(t, ok)
	assert.InDelta(t, 0.75, rel, 1e-9)

	v := NewRecordView(Record{ID: "a", Distance: &d})
	if assert.NotNil(t, v.Relevance) {
		assert.InDelta(t, 0.75, *v.Relevance, 1e-9)
	}
	assert.Nil(t, NewRecordView(Record{ID: "b"}).Relevance)
}
