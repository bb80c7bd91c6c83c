package analysis

// Signal tags an indicator for display; trusted as produced by the model.
type Signal string

const (
	SignalAI      Signal = "ai"
	SignalHuman   Signal = "human"
	SignalNeutral Signal = "neutral"
)

const (
	VerdictAI    = "AI Generated"
	VerdictHuman = "Human Generated"
)

// Indicator is one piece of evidence cited by the model.
type Indicator struct {
	Label  string `json:"label"`
	Detail string `json:"detail"`
	Signal Signal `json:"signal"`
}

// Result is the normalized model verdict returned to the client.
// Confidence is the probability (0-100) that the media is AI generated;
// nil when the model did not provide a usable number.
type Result struct {
	Verdict    string      `json:"verdict"`
	Confidence *float64    `json:"confidence,omitempty"`
	Summary    string      `json:"summary"`
	Indicators []Indicator `json:"indicators"`
}
