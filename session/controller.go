// Package session holds the per-browser search state: the current query, the
// page reached, the records accumulated across pages and the selected record.
//
// Fetches run without the state lock held, so a new search may start while an
// older one is still waiting on Weaviate. Every search gets a token; a
// response is applied only if its token is still the latest, which keeps a
// slow first query from overwriting the results of a faster second one.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/amirhf/imageSearch/services/gallery-go/models"
	"github.com/amirhf/imageSearch/services/gallery-go/observability"
	"github.com/amirhf/imageSearch/services/gallery-go/storage"
)

var (
	ErrNotConnected    = errors.New("not connected to weaviate")
	ErrBusy            = errors.New("a request is already in flight")
	ErrNothingToExtend = errors.New("no results to extend")
	ErrSuperseded      = errors.New("superseded by a newer search")
	ErrUnknownRecord   = errors.New("record is not in the current results")
)

// NoMoreResults is the notice shown when a load-more comes back empty.
const NoMoreResults = "No more results available"

// Snapshot is a consistent copy of a controller's state.
type Snapshot struct {
	Mode        models.Mode
	Query       models.Query
	Page        int
	Records     []models.Record
	Selected    *models.Record
	Connected   bool
	Connecting  bool
	Searching   bool
	LoadingMore bool
	Error       string
	Notice      string
}

// Controller drives one search session.
type Controller struct {
	gateway   storage.Gateway
	pageSize  int
	className string
	log       logrus.FieldLogger

	mu          sync.Mutex
	query       models.Query
	page        int
	records     []models.Record
	selected    *models.Record
	connected   bool
	connecting  bool
	searching   bool
	loadingMore bool
	errMsg      string
	notice      string

	// searchToken is bumped by every Connect and StartSearch; loadToken by
	// every LoadMore.
	searchToken uint64
	loadToken   uint64
}

// NewController returns a controller in Listing mode, page 0, with no records.
// className only feeds the empty-listing notice.
func NewController(gateway storage.Gateway, pageSize int, className string, log logrus.FieldLogger) *Controller {
	return &Controller{
		gateway:   gateway,
		pageSize:  pageSize,
		className: className,
		log:       log,
		query:     models.ListingQuery{},
	}
}

// Connect loads the first listing page to verify Weaviate is reachable. It
// may be called again to retry after a failure.
func (c *Controller) Connect(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	if c.connecting {
		c.mu.Unlock()
		return c.Snapshot(), ErrBusy
	}
	q := models.Query(models.ListingQuery{})
	token := c.beginSearchLocked(q)
	c.connecting = true
	c.mu.Unlock()

	records, err := c.gateway.Fetch(ctx, q, c.pageSize, 0)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.connecting = false
	if token != c.searchToken {
		c.supersededLocked("connect", q)
		return c.snapshotLocked(), ErrSuperseded
	}
	c.searching = false
	if err != nil {
		c.connected = false
		c.errMsg = "Failed to connect to Weaviate: " + message(err)
		return c.snapshotLocked(), nil
	}
	c.connected = true
	c.applyFirstPageLocked(q, records)
	return c.snapshotLocked(), nil
}

// StartSearch replaces the current search. Page, records and selection are
// reset before the first page is requested.
func (c *Controller) StartSearch(ctx context.Context, q models.Query) (Snapshot, error) {
	if q == nil {
		return c.Snapshot(), fmt.Errorf("%w: nil query", storage.ErrInvalidQuery)
	}
	if err := q.Validate(); err != nil {
		return c.Snapshot(), fmt.Errorf("%w: %v", storage.ErrInvalidQuery, err)
	}

	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return c.Snapshot(), ErrNotConnected
	}
	token := c.beginSearchLocked(q)
	c.mu.Unlock()

	records, err := c.gateway.Fetch(ctx, q, c.pageSize, 0)

	c.mu.Lock()
	defer c.mu.Unlock()
	if token != c.searchToken {
		c.supersededLocked("search", q)
		return c.snapshotLocked(), ErrSuperseded
	}
	c.searching = false
	if err != nil {
		c.errMsg = searchErrorPrefix(q.Mode()) + message(err)
		return c.snapshotLocked(), nil
	}
	c.applyFirstPageLocked(q, records)
	return c.snapshotLocked(), nil
}

// Reset returns to the plain listing.
func (c *Controller) Reset(ctx context.Context) (Snapshot, error) {
	return c.StartSearch(ctx, models.ListingQuery{})
}

// FindSimilar searches for records near the record with the given id.
func (c *Controller) FindSimilar(ctx context.Context, id string) (Snapshot, error) {
	return c.StartSearch(ctx, models.SimilarQuery{ID: id})
}

// LoadMore appends the next page of the current search.
func (c *Controller) LoadMore(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	switch {
	case !c.connected:
		c.mu.Unlock()
		return c.Snapshot(), ErrNotConnected
	case c.connecting || c.searching || c.loadingMore:
		c.mu.Unlock()
		return c.Snapshot(), ErrBusy
	case len(c.records) == 0:
		c.mu.Unlock()
		return c.Snapshot(), ErrNothingToExtend
	}
	c.loadToken++
	searchToken, loadToken := c.searchToken, c.loadToken
	q := c.query
	nextPage := c.page + 1
	c.loadingMore = true
	c.errMsg = ""
	c.notice = ""
	c.mu.Unlock()

	records, err := c.gateway.Fetch(ctx, q, c.pageSize, nextPage*c.pageSize)

	c.mu.Lock()
	defer c.mu.Unlock()
	if searchToken != c.searchToken || loadToken != c.loadToken {
		c.supersededLocked("load_more", q)
		return c.snapshotLocked(), ErrSuperseded
	}
	c.loadingMore = false
	switch {
	case err != nil:
		c.errMsg = "Error loading more results: " + message(err)
	case len(records) == 0:
		c.notice = NoMoreResults
	default:
		c.records = append(c.records, records...)
		c.page = nextPage
	}
	return c.snapshotLocked(), nil
}

// Select marks one of the accumulated records for the detail view.
func (c *Controller) Select(id string) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.records {
		if c.records[i].ID == id {
			r := c.records[i]
			c.selected = &r
			return c.snapshotLocked(), nil
		}
	}
	return c.snapshotLocked(), ErrUnknownRecord
}

// Dismiss closes the detail view.
func (c *Controller) Dismiss() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = nil
	return c.snapshotLocked()
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// beginSearchLocked resets the session for q and returns the new token. Any
// pending load-more is abandoned.
func (c *Controller) beginSearchLocked(q models.Query) uint64 {
	c.searchToken++
	c.query = q
	c.page = 0
	c.records = nil
	c.selected = nil
	c.errMsg = ""
	c.notice = ""
	c.searching = true
	c.loadingMore = false
	return c.searchToken
}

func (c *Controller) applyFirstPageLocked(q models.Query, records []models.Record) {
	c.records = records
	if len(records) == 0 && q.Mode() == models.ModeListing {
		c.notice = fmt.Sprintf("No images found in class '%s'. The class name might be different.", c.className)
	}
}

func (c *Controller) supersededLocked(op string, q models.Query) {
	observability.SupersededTotal.WithLabelValues(op).Inc()
	c.log.WithFields(logrus.Fields{
		"operation": op,
		"mode":      q.Mode(),
	}).Debug("discarding superseded response")
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		Mode:        c.query.Mode(),
		Query:       c.query,
		Page:        c.page,
		Records:     append([]models.Record(nil), c.records...),
		Connected:   c.connected,
		Connecting:  c.connecting,
		Searching:   c.searching,
		LoadingMore: c.loadingMore,
		Error:       c.errMsg,
		Notice:      c.notice,
	}
	if c.selected != nil {
		r := *c.selected
		s.Selected = &r
	}
	return s
}

func searchErrorPrefix(mode models.Mode) string {
	switch mode {
	case models.ModeText:
		return "Text search error: "
	case models.ModeImage:
		return "Image search error: "
	case models.ModeSimilar:
		return "Find similar error: "
	}
	return "Error loading images: "
}

func message(err error) string {
	var qerr *storage.QueryError
	if errors.As(err, &qerr) {
		return qerr.Message
	}
	return err.Error()
}
