package failures

import (
	"context"
)

// Repository defines persistence for failed analyses
type Repository interface {
	Save(ctx context.Context, f *Failure) error
	Latest(ctx context.Context, media string, limit int) ([]*Failure, error)
}
