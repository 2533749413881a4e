package storage

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	wvmodels "github.com/weaviate/weaviate/entities/models"

	"github.com/amirhf/imageSearch/services/gallery-go/config"
	"github.com/amirhf/imageSearch/services/gallery-go/models"
	"github.com/amirhf/imageSearch/services/gallery-go/observability"
)

// WeaviateStore queries a Weaviate class through the GraphQL Get API.
// The client is created on first use and kept for the life of the process.
type WeaviateStore struct {
	cfg config.WeaviateConfig
	log logrus.FieldLogger

	dial func(weaviate.Config) (*weaviate.Client, error)

	once      sync.Once
	client    *weaviate.Client
	clientErr error
}

func NewWeaviateStore(cfg config.WeaviateConfig, log logrus.FieldLogger) *WeaviateStore {
	return &WeaviateStore{
		cfg:  cfg,
		log:  log,
		dial: weaviate.NewClient,
	}
}

// conn returns the shared client. A failed creation is remembered and never
// retried.
func (s *WeaviateStore) conn() (*weaviate.Client, error) {
	s.once.Do(func() {
		headers := make(map[string]string, len(s.cfg.Headers)+1)
		for k, v := range s.cfg.Headers {
			headers[k] = v
		}
		if s.cfg.APIKey != "" {
			headers["Authorization"] = "Bearer " + s.cfg.APIKey
		}
		s.client, s.clientErr = s.dial(weaviate.Config{
			Scheme:           s.cfg.Scheme,
			Host:             s.cfg.Host,
			Headers:          headers,
			ConnectionClient: &http.Client{Timeout: s.cfg.Timeout},
		})
		if s.clientErr != nil {
			s.clientErr = errors.Wrap(s.clientErr, "creating weaviate client")
			return
		}
		s.log.WithFields(logrus.Fields{
			"scheme":  s.cfg.Scheme,
			"host":    s.cfg.Host,
			"api_key": s.cfg.APIKey != "",
		}).Info("weaviate client initialized")
	})
	return s.client, s.clientErr
}

// Fetch runs one query. Records come back in Weaviate's order: ascending
// distance for the near* modes, storage order for listings.
func (s *WeaviateStore) Fetch(ctx context.Context, q models.Query, limit, offset int) ([]models.Record, error) {
	if err := checkArgs(q, limit, offset); err != nil {
		return nil, err
	}
	mode := q.Mode()
	start := time.Now()

	records, err := s.fetch(ctx, q, limit, offset)

	elapsed := time.Since(start)
	observability.QueryLatency.WithLabelValues(string(mode)).Observe(elapsed.Seconds())
	entry := s.log.WithFields(logrus.Fields{
		"mode":     mode,
		"limit":    limit,
		"offset":   offset,
		"duration": elapsed,
	})
	if err != nil {
		observability.QueriesTotal.WithLabelValues(string(mode), "error").Inc()
		entry.WithError(err).Warn("weaviate query failed")
		return nil, err
	}
	observability.QueriesTotal.WithLabelValues(string(mode), "ok").Inc()
	entry.WithField("results", len(records)).Debug("weaviate query")
	return records, nil
}

func (s *WeaviateStore) fetch(ctx context.Context, q models.Query, limit, offset int) ([]models.Record, error) {
	mode := q.Mode()
	client, err := s.conn()
	if err != nil {
		return nil, &QueryError{Mode: mode, Message: err.Error(), Err: err}
	}

	gql := client.GraphQL()
	get := gql.Get().
		WithClassName(s.cfg.ClassName).
		WithFields(s.fields(mode)...).
		WithLimit(limit).
		WithOffset(offset)

	switch q := q.(type) {
	case models.ListingQuery:
	case models.TextQuery:
		get = get.WithNearText(gql.NearTextArgBuilder().
			WithConcepts([]string{q.Text}).
			WithTargetVectors(s.cfg.TextTargetVector))
	case models.ImageQuery:
		get = get.WithNearImage(gql.NearImageArgBuilder().
			WithImage(q.Image).
			WithTargetVectors(s.cfg.ImageTargetVector))
	case models.SimilarQuery:
		get = get.WithNearObject(gql.NearObjectArgBuilder().
			WithID(q.ID).
			WithTargetVectors(s.cfg.ImageTargetVector))
	}

	resp, err := get.Do(ctx)
	if err != nil {
		return nil, &QueryError{Mode: mode, Message: err.Error(), Err: err}
	}
	return decodeGetResponse(resp, s.cfg.ClassName, mode)
}

func (s *WeaviateStore) fields(mode models.Mode) []graphql.Field {
	fields := make([]graphql.Field, 0, len(s.cfg.Properties)+1)
	for _, p := range s.cfg.Properties {
		fields = append(fields, graphql.Field{Name: p})
	}
	additional := []graphql.Field{{Name: "id"}}
	if mode != models.ModeListing {
		additional = append(additional, graphql.Field{Name: "distance"})
	}
	return append(fields, graphql.Field{Name: "_additional", Fields: additional})
}

func decodeGetResponse(resp *wvmodels.GraphQLResponse, className string, mode models.Mode) ([]models.Record, error) {
	if resp == nil {
		return nil, nil
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			if e != nil && e.Message != "" {
				msgs = append(msgs, e.Message)
			}
		}
		msg := strings.Join(msgs, "; ")
		if msg == "" {
			msg = "weaviate returned an unspecified GraphQL error"
		}
		return nil, &QueryError{Mode: mode, Message: msg}
	}

	get, _ := asObject(resp.Data["Get"])
	items, _ := get[className].([]interface{})
	records := make([]models.Record, 0, len(items))
	for _, item := range items {
		obj, ok := asObject(item)
		if !ok {
			continue
		}
		if r, ok := decodeRecord(obj); ok {
			records = append(records, r)
		}
	}
	return records, nil
}

// decodeRecord maps one Get object onto a Record. Objects with no id are
// dropped.
func decodeRecord(obj map[string]interface{}) (models.Record, bool) {
	var r models.Record
	additional, _ := asObject(obj["_additional"])
	r.ID = stringField(additional, "id")
	if r.ID == "" {
		r.ID = stringField(obj, "id")
	}
	if r.ID == "" {
		return r, false
	}

	r.Image = stringField(obj, "image")
	r.Prompt = stringField(obj, "prompt")
	r.Title = stringField(obj, "title")
	r.Description = stringField(obj, "description")
	r.SourceSite = stringField(obj, "sourceSite")
	r.URL = stringField(obj, "url")
	r.Width = positiveInt(obj, "width")
	r.Height = positiveInt(obj, "height")
	if tags, ok := obj["tags"].([]interface{}); ok {
		for _, t := range tags {
			if s, ok := t.(string); ok {
				r.Tags = append(r.Tags, s)
			}
		}
	}
	if d, ok := number(additional["distance"]); ok {
		r.Distance = &d
	}
	return r, true
}

func asObject(v interface{}) (map[string]interface{}, bool) {
	m, ok := v.(map[string]interface{})
	return m, ok
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

func positiveInt(m map[string]interface{}, key string) int {
	f, ok := number(m[key])
	if !ok || f < 1 {
		return 0
	}
	return int(f)
}

func number(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
