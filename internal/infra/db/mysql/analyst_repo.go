package mysql

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

// Save inserts an analysis record
func (r *AnalystRepository) Save(ctx context.Context, a *domain.Analysis) error {
	const q = `
INSERT INTO analyses
  (id, media, verdict, confidence, summary, indicators_json, media_url, file_name, model, duration_ms, created_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
  verdict=VALUES(verdict), confidence=VALUES(confidence), summary=VALUES(summary),
  indicators_json=VALUES(indicators_json), media_url=VALUES(media_url);
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
		string(a.ID), orDash(a.Media), a.Verdict, a.Confidence, a.Summary, indicators,
		a.MediaURL, a.FileName, a.Model, a.DurationMS, createdAt,
	)
	return err
}

// Get returns one analysis or domain.ErrNotFound
func (r *AnalystRepository) Get(ctx context.Context, id domain.AnalysisID) (*domain.Analysis, error) {
	q := `SELECT ` + analysisColumns + ` FROM analyses WHERE id=? LIMIT 1;`
	a, err := scanAnalysis(r.db.QueryRowContext(ctx, q, string(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return a, err
}

// Paginate returns a page of analysis records ordered by created_at desc.
// An empty media lists every kind.
func (r *AnalystRepository) Paginate(ctx context.Context, media string, page, pageSize int) ([]*domain.Analysis, error) {
	limit, offset := db.Offset(page, pageSize)

	q := `SELECT ` + analysisColumns + `
FROM analyses
WHERE (? = '' OR media = ?)
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?;`
	rows, err := r.db.QueryContext(ctx, q, media, media, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Analysis{}
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(s scanner) (*domain.Analysis, error) {
	var (
		a          domain.Analysis
		id         string
		confidence sql.NullFloat64
		indicators []byte
	)
	if err := s.Scan(&id, &a.Media, &a.Verdict, &confidence, &a.Summary, &indicators,
		&a.MediaURL, &a.FileName, &a.Model, &a.DurationMS, &a.CreatedAt); err != nil {
		return nil, err
	}
	list, err := db.DecodeIndicators(indicators)
	if err != nil {
		return nil, err
	}
	a.ID = domain.AnalysisID(id)
	a.Confidence = db.Confidence(confidence)
	a.Indicators = list
	return &a, nil
}
