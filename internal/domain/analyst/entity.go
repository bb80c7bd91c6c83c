package analyst

import (
	"time"

	"github.com/bryanwahyu/authentiq/internal/domain/analysis"
)

// AnalysisID identifier type
type AnalysisID string

// Analysis is a stored analysis result, kept for auditing and history
type Analysis struct {
	ID         AnalysisID           `json:"id"`
	Media      string               `json:"media"`
	Verdict    string               `json:"verdict"`
	Confidence *float64             `json:"confidence,omitempty"`
	Summary    string               `json:"summary"`
	Indicators []analysis.Indicator `json:"indicators"`
	MediaURL   string               `json:"media_url,omitempty"`
	FileName   string               `json:"file_name,omitempty"`
	Model      string               `json:"model,omitempty"`
	DurationMS int64                `json:"duration_ms"`
	CreatedAt  time.Time            `json:"created_at"`
}

// Result returns the client-facing part of the record.
func (a *Analysis) Result() analysis.Result {
	ind := a.Indicators
	if ind == nil {
		ind = []analysis.Indicator{}
	}
	return analysis.Result{
		Verdict:    a.Verdict,
		Confidence: a.Confidence,
		Summary:    a.Summary,
		Indicators: ind,
	}
}

// Page is one page of stored analyses.
type Page struct {
	Data     []*Analysis `json:"data"`
	Page     int         `json:"page"`
	PageSize int         `json:"pageSize"`
}
