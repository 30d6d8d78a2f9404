package analyzer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ParseAssessment parses an Assessment from raw LLM output. The response is
// stripped of markdown fences, validated against AssessmentSchema, then
// unmarshalled with enum fields normalized. On any failure the caller keeps
// the raw output for the report.
func ParseAssessment(source, rawOutput string) (Assessment, error) {
	cleaned := CleanJSONResponse(rawOutput)

	if err := ValidateJSON(cleaned, AssessmentSchema); err != nil {
		return Assessment{}, fmt.Errorf("assessment for %s: %w", source, err)
	}

	var a Assessment
	if err := json.Unmarshal([]byte(cleaned), &a); err != nil {
		return Assessment{}, fmt.Errorf("parse assessment for %s: %w", source, err)
	}

	a.Source = source
	a.Confidence = strings.ToLower(a.Confidence)
	if !ValidConfidences[a.Confidence] {
		a.Confidence = "low"
	}
	for i := range a.Threats {
		a.Threats[i].Source = source
		a.Threats[i].Severity = strings.ToLower(a.Threats[i].Severity)
		if !ValidSeverities[a.Threats[i].Severity] {
			a.Threats[i].Severity = "low"
		}
		a.Threats[i].Type = strings.ToLower(a.Threats[i].Type)
		if !ValidThreatTypes[a.Threats[i].Type] {
			a.Threats[i].Type = "other"
		}
	}
	return a, nil
}

// ValidateJSON checks a JSON document against a schema given as a Go map.
func ValidateJSON(doc string, schema map[string]interface{}) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewStringLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("schema violation: %s", strings.Join(msgs, "; "))
	}
	return nil
}

// CleanJSONResponse strips markdown code fences and surrounding prose.
// Models occasionally wrap JSON in ```json fences or lead with commentary;
// when neither cleanup yields a JSON document the input is returned trimmed.
func CleanJSONResponse(raw string) string {
	s := strings.TrimSpace(raw)

	// Remove ```json ... ``` wrapper
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
	}
	s = strings.TrimSpace(s)

	// Leading prose before the JSON object: cut to the outermost braces.
	if !strings.HasPrefix(s, "{") {
		start := strings.Index(s, "{")
		end := strings.LastIndex(s, "}")
		if start >= 0 && end > start {
			s = s[start : end+1]
		}
	}
	return strings.TrimSpace(s)
}
