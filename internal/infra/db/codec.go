// Package db holds what the MySQL and Postgres adapters share.
package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bryanwahyu/authentiq/internal/domain/analysis"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	MaxPage         = 100000
)

// Offset normalizes page/pageSize and returns LIMIT and OFFSET values.
func Offset(page, pageSize int) (limit, offset int) {
	if page <= 0 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return pageSize, (page - 1) * pageSize
}

// EncodeIndicators renders indicators for a JSON column; nil becomes "[]".
func EncodeIndicators(in []analysis.Indicator) (string, error) {
	if in == nil {
		in = []analysis.Indicator{}
	}
	b, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("encode indicators: %w", err)
	}
	return string(b), nil
}

// DecodeIndicators parses a JSON column back; empty means no indicators.
func DecodeIndicators(raw []byte) ([]analysis.Indicator, error) {
	out := []analysis.Indicator{}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode indicators: %w", err)
	}
	return out, nil
}

// Confidence converts a nullable column into the domain pointer.
func Confidence(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
