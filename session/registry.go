package session

import (
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/amirhf/imageSearch/services/gallery-go/observability"
)

// Registry maps session ids to controllers. The least recently used session
// is dropped once the registry is full.
type Registry struct {
	cache         *lru.Cache[string, *Controller]
	newController func() *Controller
}

func NewRegistry(size int, newController func() *Controller) (*Registry, error) {
	cache, err := lru.New[string, *Controller](size)
	if err != nil {
		return nil, err
	}
	return &Registry{cache: cache, newController: newController}, nil
}

// Get returns the controller for id and marks it recently used.
func (r *Registry) Get(id string) (*Controller, bool) {
	if id == "" {
		return nil, false
	}
	return r.cache.Get(id)
}

// Create starts a new session and returns its id.
func (r *Registry) Create() (string, *Controller) {
	id := uuid.NewString()
	c := r.newController()
	r.cache.Add(id, c)
	observability.ActiveSessions.Set(float64(r.cache.Len()))
	return id, c
}

func (r *Registry) Len() int {
	return r.cache.Len()
}
