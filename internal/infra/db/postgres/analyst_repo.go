package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	domain "github.com/bryanwahyu/authentiq/internal/domain/analyst"
	"github.com/bryanwahyu/authentiq/internal/infra/db"
)

type AnalystRepository struct {
	db *sql.DB
}

func NewAnalystRepository(conn *sql.DB) *AnalystRepository {
	return &AnalystRepository{db: conn}
}

const analysisColumns = `id, media, verdict, confidence, summary, indicators_json, media_url, file_name, model, duration_ms, created_at`

// Save inserts or updates an analysis record
func (r *AnalystRepository) Save(ctx context.Context, a *domain.Analysis) error {
	const q = `
INSERT INTO analyses
  (id, media, verdict, confidence, summary, indicators_json, media_url, file_name, model, duration_ms, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (id) DO UPDATE SET
  verdict=EXCLUDED.verdict,
  confidence=EXCLUDED.confidence,
  summary=EXCLUDED.summary,
  indicators_json=EXCLUDED.indicators_json,
  media_url=EXCLUDED.media_url;
`
	indicators, err := db.EncodeIndicators(a.Indicators)
	if err != nil {
		return err
	}
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = r.db.ExecContext(ctx, q,
		string(a.ID), a.Media, a.Verdict, a.Confidence, a.Summary, indicators,
		a.MediaURL, a.FileName, a.Model, a.DurationMS, createdAt,
	)
	return err
}

// Get returns one analysis or domain.ErrNotFound
func (r *AnalystRepository) Get(ctx context.Context, id domain.AnalysisID) (*domain.Analysis, error) {
	q := `SELECT ` + analysisColumns + ` FROM analyses WHERE id=$1 LIMIT 1;`
	row := r.db.QueryRowContext(ctx, q, string(id))

	var (
		a          domain.Analysis
		confidence sql.NullFloat64
		indicators []byte
	)
	err := row.Scan(&a.ID, &a.Media, &a.Verdict, &confidence, &a.Summary, &indicators,
		&a.MediaURL, &a.FileName, &a.Model, &a.DurationMS, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if a.Indicators, err = db.DecodeIndicators(indicators); err != nil {
		return nil, err
	}
	a.Confidence = db.Confidence(confidence)
	return &a, nil
}

// Paginate returns a page of analysis records ordered by created_at desc
func (r *AnalystRepository) Paginate(ctx context.Context, media string, page, pageSize int) ([]*domain.Analysis, error) {
	limit, offset := db.Offset(page, pageSize)

	q := `SELECT ` + analysisColumns + `
FROM analyses
WHERE ($1 = '' OR media = $1)
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3;`
	rows, err := r.db.QueryContext(ctx, q, media, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Analysis{}
	for rows.Next() {
		var (
			a          domain.Analysis
			confidence sql.NullFloat64
			indicators []byte
		)
		if err := rows.Scan(&a.ID, &a.Media, &a.Verdict, &confidence, &a.Summary, &indicators,
			&a.MediaURL, &a.FileName, &a.Model, &a.DurationMS, &a.CreatedAt); err != nil {
			return nil, err
		}
		if a.Indicators, err = db.DecodeIndicators(indicators); err != nil {
			return nil, err
		}
		a.Confidence = db.Confidence(confidence)
		out = append(out, &a)
	}
	return out, rows.Err()
}
