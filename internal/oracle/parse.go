package oracle

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/metalagman/bictrace/internal/tracker"
)

var fenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ExtractJSON pulls the first JSON object out of a model response, tolerating
// fenced code blocks and surrounding prose.
func ExtractJSON(s string) (string, error) {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "{") && json.Valid([]byte(trimmed)) {
		return trimmed, nil
	}
	if m := fenceRe.FindStringSubmatch(trimmed); m != nil && json.Valid([]byte(m[1])) {
		return m[1], nil
	}
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		window := trimmed[start : end+1]
		if json.Valid([]byte(window)) {
			return window, nil
		}
	}
	return "", fmt.Errorf("no JSON object found in response")
}

func validateAgainst(schema, doc string) error {
	result, err := gojsonschema.Validate(gojsonschema.NewStringLoader(schema), gojsonschema.NewStringLoader(doc))
	if err != nil {
		return fmt.Errorf("validate response: %w", err)
	}
	if result.Valid() {
		return nil
	}
	errs := make([]string, 0, len(result.Errors()))
	for _, schemaErr := range result.Errors() {
		errs = append(errs, schemaErr.String())
	}
	sort.Strings(errs)
	return fmt.Errorf("response schema validation failed: %s", strings.Join(errs, "; "))
}

type analysisPayload struct {
	ChangeType     string  `json:"change_type"`
	Reasoning      string  `json:"reasoning"`
	Confidence     float64 `json:"confidence"`
	TargetFile     string  `json:"target_file"`
	TargetLine     int     `json:"target_line"`
	ShouldContinue *bool   `json:"should_continue"`
}

func parseAnalysis(raw string) (tracker.Analysis, error) {
	doc, err := ExtractJSON(raw)
	if err != nil {
		return tracker.Analysis{}, err
	}
	if err := validateAgainst(classifierSchema, doc); err != nil {
		return tracker.Analysis{}, err
	}
	var p analysisPayload
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return tracker.Analysis{}, fmt.Errorf("decode verdict: %w", err)
	}
	shouldContinue := p.ChangeType != string(tracker.VerdictIntroduced)
	if p.ShouldContinue != nil {
		shouldContinue = *p.ShouldContinue
	}
	return tracker.Analysis{
		Verdict:        tracker.Verdict(p.ChangeType),
		Reasoning:      p.Reasoning,
		Confidence:     p.Confidence,
		TargetFile:     p.TargetFile,
		TargetLine:     p.TargetLine,
		ShouldContinue: shouldContinue,
	}, nil
}

type verificationPayload struct {
	Verdict    string  `json:"verdict"`
	Reason     string  `json:"reason"`
	Suggestion string  `json:"suggestion"`
	Confidence float64 `json:"confidence"`
}

func parseVerification(raw string) (tracker.Verification, error) {
	doc, err := ExtractJSON(raw)
	if err != nil {
		return tracker.Verification{}, err
	}
	if err := validateAgainst(verifierSchema, doc); err != nil {
		return tracker.Verification{}, err
	}
	var p verificationPayload
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return tracker.Verification{}, fmt.Errorf("decode verification: %w", err)
	}
	return tracker.Verification{
		Accepted:   p.Verdict == "ACCEPT",
		Reason:     p.Reason,
		Suggestion: p.Suggestion,
		Confidence: p.Confidence,
	}, nil
}
