package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirhf/imageSearch/services/gallery-go/models"
)

// Gateway issues one query against the image collection and returns the
// records in service order.
type Gateway interface {
	Fetch(ctx context.Context, q models.Query, limit, offset int) ([]models.Record, error)
}

// ErrInvalidQuery reports a caller bug: a nil or malformed query, or bad
// paging arguments. No request is sent.
var ErrInvalidQuery = errors.New("invalid query")

// QueryError is returned for any transport or service-side failure.
type QueryError struct {
	Mode    models.Mode
	Message string
	Err     error
}

func (e *QueryError) Error() string {
	return e.Message
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// Cause lets github.com/pkg/errors.Cause see through the wrapper.
func (e *QueryError) Cause() error {
	return e.Err
}

func checkArgs(q models.Query, limit, offset int) error {
	if q == nil {
		return fmt.Errorf("%w: nil query", ErrInvalidQuery)
	}
	if err := q.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	if limit <= 0 {
		return fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidQuery, limit)
	}
	if offset < 0 {
		return fmt.Errorf("%w: offset must not be negative, got %d", ErrInvalidQuery, offset)
	}
	return nil
}
