package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	rxFenceJSON = regexp.MustCompile("(?i)```json\\s*")
	rxFence     = regexp.MustCompile("```\\s*")

	rxTrailingObject = regexp.MustCompile(`,\s*}`)
	rxTrailingArray  = regexp.MustCompile(`,\s*]`)
	rxControl        = regexp.MustCompile(`[\x00-\x1F\x7F]`)
)

// Normalize turns the raw message content of the model into a Result.
//
// The content is expected to be a JSON object but may be wrapped in code
// fences, surrounded by prose, carry trailing commas or raw control
// characters. The object span is cut out, parsed strictly, and on failure
// repaired once and parsed again.
func Normalize(content string) (Result, error) {
	if content == "" {
		return Result{}, ErrEmptyResponse
	}

	span, err := ExtractJSON(content)
	if err != nil {
		return Result{}, err
	}

	raw, err := decode(span)
	if err != nil {
		return Result{}, err
	}
	return coerce(raw)
}

// ExtractJSON strips code fences and returns the text from the first '{' or
// '[' through the last '}'.
func ExtractJSON(content string) (string, error) {
	cleaned := rxFenceJSON.ReplaceAllString(content, "")
	cleaned = rxFence.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)

	start := strings.IndexAny(cleaned, "{[")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end == -1 || end < start {
		return "", ErrNoJSONFound
	}
	return cleaned[start : end+1], nil
}

// Repair drops trailing commas before '}' or ']' and removes ASCII control characters.
func Repair(s string) string {
	s = rxTrailingObject.ReplaceAllString(s, "}")
	s = rxTrailingArray.ReplaceAllString(s, "]")
	return rxControl.ReplaceAllString(s, "")
}

func decode(span string) (map[string]any, error) {
	var strict map[string]any
	if err := json.Unmarshal([]byte(span), &strict); err == nil {
		return strict, nil
	}

	var repaired map[string]any
	if err := json.Unmarshal([]byte(Repair(span)), &repaired); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	return repaired, nil
}

// Round2 rounds half up to two decimals, the way the browser client does.
func Round2(x float64) float64 {
	return math.Floor(x*100+0.5) / 100
}

// VerdictFor labels a confidence score when the model left the verdict out.
func VerdictFor(confidence float64) string {
	if confidence >= 50 {
		return VerdictAI
	}
	return VerdictHuman
}

// ParseSignal lowercases s and maps anything unknown to neutral.
func ParseSignal(s string) Signal {
	switch sig := Signal(strings.ToLower(strings.TrimSpace(s))); sig {
	case SignalAI, SignalHuman:
		return sig
	default:
		return SignalNeutral
	}
}

func coerce(raw map[string]any) (Result, error) {
	res := Result{
		Verdict:    strings.TrimSpace(stringField(raw, "verdict")),
		Confidence: confidence(raw["confidence"]),
		Summary:    stringField(raw, "summary"),
		Indicators: indicators(raw["indicators"]),
	}
	if res.Verdict == "" {
		if res.Confidence == nil {
			return Result{}, ErrIncompleteResult
		}
		res.Verdict = VerdictFor(*res.Confidence)
	}
	return res, nil
}

func confidence(v any) *float64 {
	var x float64
	switch c := v.(type) {
	case float64:
		x = c
	case string:
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(c), "%"))
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		x = f
	default:
		return nil
	}

	x = math.Max(0, math.Min(100, Round2(x)))
	return &x
}

func indicators(v any) []Indicator {
	out := []Indicator{}
	items, ok := v.([]any)
	if !ok {
		return out
	}
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		label := strings.TrimSpace(stringField(m, "label"))
		if label == "" {
			continue
		}
		out = append(out, Indicator{
			Label:  label,
			Detail: stringField(m, "detail"),
			Signal: ParseSignal(stringField(m, "signal")),
		})
	}
	return out
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
