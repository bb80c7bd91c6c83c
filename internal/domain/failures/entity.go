package failures

import "time"

// Phase tells where an analysis failed.
type Phase string

const (
	PhaseDispatch  Phase = "dispatch"
	PhaseNormalize Phase = "normalize"
)

// Failure represents a persisted failed analysis
type Failure struct {
	ID         int64     `json:"id"`
	Media      string    `json:"media"`
	Phase      Phase     `json:"phase"`
	Message    string    `json:"message"`
	RawContent string    `json:"raw_content,omitempty"` // model reply that could not be normalized
	CreatedAt  time.Time `json:"created_at"`
}
