package mysql

import (
	"context"
	"database/sql"
	"time"

	domain "github.com/bryanwahyu/authentiq/internal/domain/failures"
	"github.com/bryanwahyu/authentiq/internal/infra/db"
)

type FailureRepository struct {
	db *sql.DB
}

func NewFailureRepository(conn *sql.DB) *FailureRepository { return &FailureRepository{db: conn} }

func (r *FailureRepository) Save(ctx context.Context, f *domain.Failure) error {
	const q = `
INSERT INTO analysis_failures
  (media, phase, message, raw_content, created_at)
VALUES (?,?,?,?,?)
`
	created := f.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, q, orDash(f.Media), orDash(string(f.Phase)), orDash(f.Message), nullIfEmpty(f.RawContent), created)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		f.ID = id
	}
	return nil
}

// Latest returns the newest failures; an empty media lists every kind.
func (r *FailureRepository) Latest(ctx context.Context, media string, limit int) ([]*domain.Failure, error) {
	limit, _ = db.Offset(1, limit)
	const q = `
SELECT id, media, phase, message, raw_content, created_at
FROM analysis_failures
WHERE (? = '' OR media = ?)
ORDER BY created_at DESC, id DESC
LIMIT ?;`
	rows, err := r.db.QueryContext(ctx, q, media, media, limit)
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
