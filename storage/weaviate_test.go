package storage

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	wvmodels "github.com/weaviate/weaviate/entities/models"

	"github.com/amirhf/imageSearch/services/gallery-go/config"
	"github.com/amirhf/imageSearch/services/gallery-go/models"
)

// fakeWeaviate answers GraphQL requests with a canned body and records the
// queries and headers it received.
type fakeWeaviate struct {
	mu      sync.Mutex
	queries []string
	auth    []string
	body    string
	status  int
}

func (f *fakeWeaviate) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/v1/graphql":
		var req struct {
			Query string `json:"query"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.queries = append(f.queries, req.Query)
		f.auth = append(f.auth, r.Header.Get("Authorization"))
		body, status := f.body, f.status
		f.mu.Unlock()
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	case "/v1/meta":
		_, _ = w.Write([]byte(`{"version":"1.27.0"}`))
	default:
		_, _ = w.Write([]byte(`{}`))
	}
}

func (f *fakeWeaviate) lastQuery() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queries) == 0 {
		return ""
	}
	return f.queries[len(f.queries)-1]
}

func newTestStore(t *testing.T, fake *fakeWeaviate, mutate ...func(*config.WeaviateConfig)) *WeaviateStore {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	cfg := config.Defaults().Weaviate
	cfg.Scheme = "http"
	cfg.Host = strings.TrimPrefix(srv.URL, "http://")
	cfg.Timeout = 5 * time.Second
	for _, m := range mutate {
		m(&cfg)
	}
	log, _ := test.NewNullLogger()
	return NewWeaviateStore(cfg, log)
}

const twoRecords = `{"data":{"Get":{"DiffusionPrompt":[
	{"prompt":"a red sunset","image":"aW1n","width":512,"height":768,"sourceSite":"example.org","url":"https://example.org/1","_additional":{"id":"id-1","distance":0.12}},
	{"prompt":"sunset over sea","width":0,"unknownField":true,"_additional":{"id":"id-2","distance":0.2}}
]}}}`

func TestFetchTextQuery(t *testing.T) {
	fake := &fakeWeaviate{body: twoRecords}
	store := newTestStore(t, fake)

	records, err := store.Fetch(context.Background(), models.TextQuery{Text: "sunset"}, 12, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "id-1", records[0].ID)
	assert.Equal(t, "a red sunset", records[0].Prompt)
	assert.Equal(t, "aW1n", records[0].Image)
	assert.Equal(t, 512, records[0].Width)
	assert.Equal(t, 768, records[0].Height)
	assert.Equal(t, "example.org", records[0].SourceSite)
	assert.Equal(t, "https://example.org/1", records[0].URL)
	require.NotNil(t, records[0].Distance)
	assert.InDelta(t, 0.12, *records[0].Distance, 1e-9)

	assert.Equal(t, "id-2", records[1].ID)
	assert.Zero(t, records[1].Width, "non-positive dimensions are treated as absent")
	assert.Empty(t, records[1].Image)

	q := fake.lastQuery()
	assert.Contains(t, q, "DiffusionPrompt")
	assert.Contains(t, q, "nearText")
	assert.Contains(t, q, "sunset")
	assert.Contains(t, q, "prompt")
	assert.Contains(t, q, "distance")
}

func TestFetchQueryShapes(t *testing.T) {
	tests := []struct {
		name     string
		query    models.Query
		contains []string
		excludes []string
	}{
		{
			name:     "listing",
			query:    models.ListingQuery{},
			contains: []string{"DiffusionPrompt", "_additional", "offset"},
			excludes: []string{"nearText", "nearImage", "nearObject", "distance"},
		},
		{
			name:     "image",
			query:    models.ImageQuery{Image: "aGVsbG8="},
			contains: []string{"nearImage", "aGVsbG8=", "distance"},
		},
		{
			name:     "similar",
			query:    models.SimilarQuery{ID: "00000000-0000-0000-0000-000000000001"},
			contains: []string{"nearObject", "00000000-0000-0000-0000-000000000001", "distance"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeWeaviate{body: `{"data":{"Get":{"DiffusionPrompt":[]}}}`}
			store := newTestStore(t, fake)

			records, err := store.Fetch(context.Background(), tt.query, 12, 24)
			require.NoError(t, err)
			assert.Empty(t, records)

			q := fake.lastQuery()
			for _, s := range tt.contains {
				assert.Contains(t, q, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, q, s)
			}
		})
	}
}

func TestFetchGraphQLError(t *testing.T) {
	fake := &fakeWeaviate{body: `{"errors":[{"message":"no module with name \"img2vec\" present"}],"data":{"Get":{"DiffusionPrompt":null}}}`}
	store := newTestStore(t, fake)

	_, err := store.Fetch(context.Background(), models.ImageQuery{Image: "aGVsbG8="}, 12, 0)
	require.Error(t, err)

	var qerr *QueryError
	require.True(t, errors.As(err, &qerr))
	assert.Equal(t, models.ModeImage, qerr.Mode)
	assert.Contains(t, qerr.Message, "img2vec")
}

func TestFetchTransportError(t *testing.T) {
	fake := &fakeWeaviate{body: `{"error":"boom"}`, status: http.StatusInternalServerError}
	store := newTestStore(t, fake)

	_, err := store.Fetch(context.Background(), models.ListingQuery{}, 12, 0)
	require.Error(t, err)

	var qerr *QueryError
	require.True(t, errors.As(err, &qerr))
	assert.Equal(t, models.ModeListing, qerr.Mode)
	assert.NotEmpty(t, qerr.Message)
}

func TestFetchSendsAPIKey(t *testing.T) {
	fake := &fakeWeaviate{body: `{"data":{"Get":{"DiffusionPrompt":[]}}}`}
	store := newTestStore(t, fake, func(c *config.WeaviateConfig) { c.APIKey = "secret" })

	_, err := store.Fetch(context.Background(), models.ListingQuery{}, 12, 0)
	require.NoError(t, err)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.NotEmpty(t, fake.auth)
	assert.Equal(t, "Bearer secret", fake.auth[len(fake.auth)-1])
}

func TestFetchRejectsInvalidArguments(t *testing.T) {
	fake := &fakeWeaviate{}
	store := newTestStore(t, fake)

	tests := []struct {
		name          string
		query         models.Query
		limit, offset int
	}{
		{"nil query", nil, 12, 0},
		{"empty text", models.TextQuery{}, 12, 0},
		{"zero limit", models.ListingQuery{}, 0, 0},
		{"negative offset", models.ListingQuery{}, 12, -12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Fetch(context.Background(), tt.query, tt.limit, tt.offset)
			assert.ErrorIs(t, err, ErrInvalidQuery)
		})
	}
	assert.Empty(t, fake.lastQuery(), "no request is sent for invalid arguments")
}

func TestClientCreatedOnce(t *testing.T) {
	fake := &fakeWeaviate{body: `{"data":{"Get":{"DiffusionPrompt":[]}}}`}
	store := newTestStore(t, fake)

	calls := 0
	store.dial = func(cfg weaviate.Config) (*weaviate.Client, error) {
		calls++
		return weaviate.NewClient(cfg)
	}

	for i := 0; i < 3; i++ {
		_, err := store.Fetch(context.Background(), models.ListingQuery{}, 12, i*12)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, calls)
}

func TestClientFailureIsRemembered(t *testing.T) {
	log, hook := test.NewNullLogger()
	store := NewWeaviateStore(config.Defaults().Weaviate, log)

	calls := 0
	store.dial = func(weaviate.Config) (*weaviate.Client, error) {
		calls++
		return nil, errors.New("bad host")
	}

	for i := 0; i < 2; i++ {
		_, err := store.Fetch(context.Background(), models.ListingQuery{}, 12, 0)
		var qerr *QueryError
		require.True(t, errors.As(err, &qerr))
		assert.Contains(t, qerr.Message, "bad host")
	}
	assert.Equal(t, 1, calls)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestDecodeGetResponseDropsRecordsWithoutID(t *testing.T) {
	resp := &wvmodels.GraphQLResponse{
		Data: map[string]wvmodels.JSONObject{
			"Get": map[string]interface{}{
				"DiffusionPrompt": []interface{}{
					map[string]interface{}{"prompt": "orphan"},
					map[string]interface{}{"id": "top-level", "tags": []interface{}{"a", 1, "b"}},
					"not an object",
				},
			},
		},
	}
	records, err := decodeGetResponse(resp, "DiffusionPrompt", models.ModeListing)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "top-level", records[0].ID)
	assert.Equal(t, []string{"a", "b"}, records[0].Tags)
	assert.Nil(t, records[0].Distance)
}

func TestDecodeGetResponseMissingClass(t *testing.T) {
	resp := &wvmodels.GraphQLResponse{Data: map[string]wvmodels.JSONObject{"Get": map[string]interface{}{}}}
	records, err := decodeGetResponse(resp, "DiffusionPrompt", models.ModeText)
	require.NoError(t, err)
	assert.Empty(t, records)
}
