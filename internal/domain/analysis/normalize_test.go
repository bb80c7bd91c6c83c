package analysis

import (
	"errors"
	"strings"
	"testing"
)

func TestNormalizeFencedReply(t *testing.T) {
	t.Parallel()

	content := "```json\n{\"verdict\":\"AI Generated\",\"confidence\":87.456,\"summary\":\"x\",\"indicators\":[]}\n```"
	got, err := Normalize(content)
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	if got.Verdict != "AI Generated" {
		t.Errorf("Verdict = %q, want %q", got.Verdict, "AI Generated")
	}
	if got.Confidence == nil || *got.Confidence != 87.46 {
		t.Errorf("Confidence = %v, want 87.46", got.Confidence)
	}
	if got.Summary != "x" {
		t.Errorf("Summary = %q, want %q", got.Summary, "x")
	}
	if got.Indicators == nil || len(got.Indicators) != 0 {
		t.Errorf("Indicators = %#v, want empty non-nil slice", got.Indicators)
	}
}

func TestNormalizeTrailingCommaRepair(t *testing.T) {
	t.Parallel()

	content := `{"verdict":"Human Generated","confidence":12,"summary":"y","indicators":[{"label":"a","detail":"b","signal":"human"},]}`
	got, err := Normalize(content)
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	if got.Verdict != "Human Generated" || got.Summary != "y" {
		t.Errorf("got %+v", got)
	}
	if got.Confidence == nil || *got.Confidence != 12 {
		t.Errorf("Confidence = %v, want 12", got.Confidence)
	}
	if len(got.Indicators) != 1 {
		t.Fatalf("len(Indicators) = %d, want 1", len(got.Indicators))
	}
	want := Indicator{Label: "a", Detail: "b", Signal: SignalHuman}
	if got.Indicators[0] != want {
		t.Errorf("Indicators[0] = %+v, want %+v", got.Indicators[0], want)
	}
}

func TestNormalizeFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    error
	}{
		{name: "absent content", content: "", want: ErrEmptyResponse},
		{name: "plain prose", content: "I think this image was made by a person.", want: ErrNoJSONFound},
		{name: "whitespace only", content: "  \n ", want: ErrNoJSONFound},
		{name: "opening brace only", content: `{"verdict": "AI Generated"`, want: ErrNoJSONFound},
		{name: "closing before opening", content: `} nothing here {`, want: ErrNoJSONFound},
		{name: "fences around prose", content: "```json\nsorry, no idea\n```", want: ErrNoJSONFound},
		{name: "unquoted keys", content: `{verdict: "AI Generated"}`, want: ErrMalformedJSON},
		{name: "single quotes", content: `{'verdict': 'AI Generated'}`, want: ErrMalformedJSON},
		{name: "array then object", content: `[{"verdict":"AI Generated"}`, want: ErrMalformedJSON},
		{name: "nothing usable", content: `{"summary":"unclear"}`, want: ErrIncompleteResult},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Normalize(tc.content)
			if !errors.Is(err, tc.want) {
				t.Errorf("Normalize(%q) error = %v, want %v", tc.content, err, tc.want)
			}
			if !IsNormalization(err) {
				t.Errorf("IsNormalization(%v) = false, want true", err)
			}
		})
	}
}

func TestExtractJSON(t *testing.T) {
	t.Parallel()

	const obj = `{"verdict":"AI Generated","nested":{"k":[1,2]}}`
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "bare", content: obj, want: obj},
		{name: "prose around", content: "Here you go: " + obj + " Hope that helps!", want: obj},
		{name: "json fence", content: "```json\n" + obj + "\n```", want: obj},
		{name: "upper case fence tag", content: "```JSON\n" + obj + "```", want: obj},
		{name: "bare fence", content: "```\n" + obj + "\n```\n", want: obj},
		{name: "fence and prose", content: "Result:\n```json\n" + obj + "\n```\nDone.", want: obj},
		{name: "last brace wins", content: obj + " and {not json}", want: obj + " and {not json}"},
		{name: "array start", content: `note [1] then {"a":1}`, want: `[1] then {"a":1}`},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := ExtractJSON(tc.content)
			if err != nil {
				t.Fatalf("ExtractJSON error: %v", err)
			}
			if got != tc.want {
				t.Errorf("ExtractJSON = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRepairMakesContentParseable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{name: "trailing comma in object", content: `{"verdict":"AI Generated","confidence":50,}`},
		{name: "trailing comma in array", content: `{"verdict":"AI Generated","indicators":[{"label":"x","detail":"y","signal":"ai"} , ]}`},
		{name: "raw newline in string", content: "{\"verdict\":\"AI Generated\",\"summary\":\"line one\nline two\"}"},
		{name: "tab and DEL", content: "{\"verdict\":\"AI\tGenerated\x7f\",\"confidence\":1}"},
		{name: "both defects", content: "{\"verdict\":\"Human Generated\",\"summary\":\"a\x01b\",\n}"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Normalize(tc.content); err != nil {
				t.Errorf("Normalize(%q) error = %v", tc.content, err)
			}
		})
	}
}

func TestRepair(t *testing.T) {
	t.Parallel()

	got := Repair("{\"a\":[1,2,\n],\"b\":\"c\x00\",}")
	want := `{"a":[1,2],"b":"c"}`
	if got != want {
		t.Errorf("Repair = %q, want %q", got, want)
	}
}

func TestRound2(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want float64
	}{
		{33.33333, 33.33},
		{87.456, 87.46},
		{87.46, 87.46},
		{33.33, 33.33},
		{12, 12},
		{0.005, 0.01},
		{99.999, 100},
	}
	for _, tc := range tests {
		tc := tc
		if got := Round2(tc.in); got != tc.want {
			t.Errorf("Round2(%v) = %v, want %v", tc.in, got, tc.want)
		}
		if got := Round2(Round2(tc.in)); got != tc.want {
			t.Errorf("Round2(Round2(%v)) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeConfidence(t *testing.T) {
	t.Parallel()

	f := func(v float64) *float64 { return &v }
	tests := []struct {
		name string
		raw  string
		want *float64
	}{
		{name: "number", raw: `33.33333`, want: f(33.33)},
		{name: "numeric string", raw: `"72.5"`, want: f(72.5)},
		{name: "percent string", raw: `"64.123%"`, want: f(64.12)},
		{name: "above range", raw: `130`, want: f(100)},
		{name: "below range", raw: `-4`, want: f(0)},
		{name: "word", raw: `"high"`, want: nil},
		{name: "null", raw: `null`, want: nil},
		{name: "object", raw: `{"value":3}`, want: nil},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := Normalize(`{"verdict":"AI Generated","confidence":` + tc.raw + `}`)
			if err != nil {
				t.Fatalf("Normalize error: %v", err)
			}
			switch {
			case tc.want == nil && got.Confidence != nil:
				t.Errorf("Confidence = %v, want nil", *got.Confidence)
			case tc.want != nil && (got.Confidence == nil || *got.Confidence != *tc.want):
				t.Errorf("Confidence = %v, want %v", got.Confidence, *tc.want)
			}
		})
	}
}

func TestNormalizeMissingConfidenceIsTolerated(t *testing.T) {
	t.Parallel()

	got, err := Normalize(`{"verdict":"Human Generated","summary":"s","indicators":[]}`)
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	if got.Confidence != nil {
		t.Errorf("Confidence = %v, want nil", *got.Confidence)
	}
	if got.Verdict != "Human Generated" {
		t.Errorf("Verdict = %q", got.Verdict)
	}
}

func TestNormalizeDerivesVerdict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want string
	}{
		{raw: `{"confidence":91}`, want: VerdictAI},
		{raw: `{"verdict":"  ","confidence":50}`, want: VerdictAI},
		{raw: `{"verdict":42,"confidence":49.99}`, want: VerdictHuman},
	}
	for _, tc := range tests {
		tc := tc
		got, err := Normalize(tc.raw)
		if err != nil {
			t.Fatalf("Normalize(%q) error: %v", tc.raw, err)
		}
		if got.Verdict != tc.want {
			t.Errorf("Normalize(%q).Verdict = %q, want %q", tc.raw, got.Verdict, tc.want)
		}
	}
}

func TestNormalizeIndicators(t *testing.T) {
	t.Parallel()

	content := `{"verdict":"AI Generated","confidence":80,"summary":7,"indicators":[
		{"label":"Lighting","detail":"shadows disagree","signal":"AI"},
		{"label":"","detail":"no label","signal":"ai"},
		"just a string",
		{"label":"Grain","detail":3,"signal":"maybe"},
		{"label":" Text ","detail":"legible","signal":"human"}
	]}`

	got, err := Normalize(content)
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	if got.Summary != "" {
		t.Errorf("Summary = %q, want empty for non-string", got.Summary)
	}
	want := []Indicator{
		{Label: "Lighting", Detail: "shadows disagree", Signal: SignalAI},
		{Label: "Grain", Detail: "", Signal: SignalNeutral},
		{Label: "Text", Detail: "legible", Signal: SignalHuman},
	}
	if len(got.Indicators) != len(want) {
		t.Fatalf("Indicators = %+v, want %+v", got.Indicators, want)
	}
	for i := range want {
		if got.Indicators[i] != want[i] {
			t.Errorf("Indicators[%d] = %+v, want %+v", i, got.Indicators[i], want[i])
		}
	}
}

func TestNormalizeIndicatorsNotAList(t *testing.T) {
	t.Parallel()

	got, err := Normalize(`{"verdict":"AI Generated","indicators":"none"}`)
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	if got.Indicators == nil || len(got.Indicators) != 0 {
		t.Errorf("Indicators = %#v, want empty slice", got.Indicators)
	}
}

func TestNormalizeMalformedKeepsCause(t *testing.T) {
	t.Parallel()

	_, err := Normalize(`{"verdict": "AI Generated" "confidence": 3}`)
	if !errors.Is(err, ErrMalformedJSON) {
		t.Fatalf("error = %v, want ErrMalformedJSON", err)
	}
	if !strings.Contains(err.Error(), ErrMalformedJSON.Error()) {
		t.Errorf("error %q does not mention %q", err, ErrMalformedJSON)
	}
}
