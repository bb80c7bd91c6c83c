package postgres

import (
	"context"
	"database/sql"
	"time"

	domain "github.com/bryanwahyu/authentiq/internal/domain/failures"
	"github.com/bryanwahyu/authentiq/internal/infra/db"
)

type FailureRepository struct{ db *sql.DB }

func NewFailureRepository(conn *sql.DB) *FailureRepository { return &FailureRepository{db: conn} }

// Save inserts a failure and fills in its generated id.
func (r *FailureRepository) Save(ctx context.Context, f *domain.Failure) error {
	const q = `
INSERT INTO analysis_failures (media, phase, message, raw_content, created_at)
VALUES ($1,$2,$3,$4,$5)
RETURNING id;`
	created := f.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	raw := sql.NullString{String: f.RawContent, Valid: f.RawContent != ""}
	return r.db.QueryRowContext(ctx, q, f.Media, string(f.Phase), f.Message, raw, created).Scan(&f.ID)
}

// Latest failures, newest first
func (r *FailureRepository) Latest(ctx context.Context, media string, limit int) ([]*domain.Failure, error) {
	limit, _ = db.Offset(1, limit)
	const q = `
SELECT id, media, phase, message, raw_content, created_at
FROM analysis_failures
WHERE ($1 = '' OR media = $1)
ORDER BY created_at DESC, id DESC
LIMIT $2;`
	rows, err := r.db.QueryContext(ctx, q, media, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Failure{}
	for rows.Next() {
		var f domain.Failure
		var raw sql.NullString
		if err := rows.Scan(&f.ID, &f.Media, &f.Phase, &f.Message, &raw, &f.CreatedAt); err != nil {
			return nil, err
		}
		f.RawContent = raw.String
		out = append(out, &f)
	}
	return out, rows.Err()
}
