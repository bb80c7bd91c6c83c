package analyst

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no analysis has the given id.
var ErrNotFound = errors.New("analysis not found")

// Repository port for persisting and querying analyses
type Repository interface {
	Save(ctx context.Context, a *Analysis) error
	Get(ctx context.Context, id AnalysisID) (*Analysis, error)
	Paginate(ctx context.Context, media string, page, pageSize int) ([]*Analysis, error)
}

// MediaStore archives submitted media and returns where it was stored.
type MediaStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}
