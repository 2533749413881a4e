package storage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirhf/imageSearch/services/gallery-go/models"
)

type stubGateway struct {
	records []models.Record
	err     error
}

func (g stubGateway) Fetch(ctx context.Context, q models.Query, limit, offset int) ([]models.Record, error) {
	return g.records, g.err
}

type memoryRecorder struct {
	entries []models.SearchLogEntry
	err     error
}

func (r *memoryRecorder) Record(ctx context.Context, e models.SearchLogEntry) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	r.entries = append(r.entries, e)
	return int64(len(r.entries)), nil
}

func TestSearchLogRecordsFetch(t *testing.T) {
	rec := &memoryRecorder{}
	log, _ := test.NewNullLogger()
	gw := WithSearchLog(stubGateway{records: []models.Record{{ID: "a"}, {ID: "b"}}}, rec, log)

	records, err := gw.Fetch(context.Background(), models.TextQuery{Text: "sunset"}, 12, 24)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	require.Len(t, rec.entries, 1)
	e := rec.entries[0]
	assert.Equal(t, models.ModeText, e.Mode)
	assert.Equal(t, "sunset", e.Parameter)
	assert.Equal(t, 12, e.Limit)
	assert.Equal(t, 24, e.Offset)
	assert.Equal(t, 2, e.ResultCount)
	assert.Empty(t, e.Error)
}

func TestSearchLogRecordsFailure(t *testing.T) {
	rec := &memoryRecorder{}
	log, _ := test.NewNullLogger()
	qerr := &QueryError{Mode: models.ModeSimilar, Message: "object not found"}
	gw := WithSearchLog(stubGateway{err: qerr}, rec, log)

	_, err := gw.Fetch(context.Background(), models.SimilarQuery{ID: "abc"}, 12, 0)
	assert.Same(t, qerr, err)

	require.Len(t, rec.entries, 1)
	assert.Equal(t, "abc", rec.entries[0].Parameter)
	assert.Equal(t, "object not found", rec.entries[0].Error)
}

func TestSearchLogWriteFailureIsNotFatal(t *testing.T) {
	rec := &memoryRecorder{err: errors.New("db down")}
	log, hook := test.NewNullLogger()
	gw := WithSearchLog(stubGateway{records: []models.Record{{ID: "a"}}}, rec, log)

	records, err := gw.Fetch(context.Background(), models.ListingQuery{}, 12, 0)
	require.NoError(t, err)
	assert.Len(t, records, 1)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "failed to record search", hook.LastEntry().Message)
}

func TestParameterDigestHashesImages(t *testing.T) {
	d := parameterDigest(models.ImageQuery{Image: "aGVsbG8="})
	assert.True(t, strings.HasPrefix(d, "sha256:"))
	assert.Len(t, d, len("sha256:")+64)
	assert.NotContains(t, d, "aGVsbG8=")
	assert.Empty(t, parameterDigest(models.ListingQuery{}))
}
