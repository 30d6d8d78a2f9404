// Package analyzer implements LLM-based threat analysis of ingested forensic data.
package analyzer

// Threat is one model-identified threat within a data source.
type Threat struct {
	Source         string   `json:"source,omitempty"`
	Type           string   `json:"type"`     // malware | suspicious_process | network_anomaly | file_anomaly | other
	Severity       string   `json:"severity"` // critical | high | medium | low
	Description    string   `json:"description"`
	Indicators     []string `json:"indicators,omitempty"`
	Recommendation string   `json:"recommendation,omitempty"`
}

// Assessment is the structured analysis result for one data source.
type Assessment struct {
	Source     string   `json:"source"`
	Threats    []Threat `json:"threats"`
	Summary    string   `json:"summary"`
	Confidence string   `json:"confidence"` // high | medium | low
}

// RawAssessment preserves the original LLM response when parsing fails.
type RawAssessment struct {
	Source     string `json:"source"`
	RawOutput  string `json:"raw_output"`
	ParseError string `json:"parse_error"`
}

// ValidSeverities are the accepted threat severity values.
var ValidSeverities = map[string]bool{
	"critical": true,
	"high":     true,
	"medium":   true,
	"low":      true,
}

// ValidConfidences are the accepted assessment confidence values.
var ValidConfidences = map[string]bool{
	"high":   true,
	"medium": true,
	"low":    true,
}

// ValidThreatTypes are the accepted threat type values.
var ValidThreatTypes = map[string]bool{
	"malware":            true,
	"suspicious_process": true,
	"network_anomaly":    true,
	"file_anomaly":       true,
	"other":              true,
}

// AssessmentSchema is a JSON Schema for constrained LLM output. It is passed
// to providers that support response schemas and used to validate whatever
// comes back.
var AssessmentSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"threats": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"type": map[string]interface{}{
						"type": "string",
						"enum": []string{"malware", "suspicious_process", "network_anomaly", "file_anomaly", "other"},
					},
					"severity": map[string]interface{}{
						"type": "string",
						"enum": []string{"critical", "high", "medium", "low"},
					},
					"description": map[string]interface{}{"type": "string"},
					"indicators": map[string]interface{}{
						"type":  "array",
						"items": map[string]interface{}{"type": "string"},
					},
					"recommendation": map[string]interface{}{"type": "string"},
				},
				"required": []string{"type", "severity", "description"},
			},
		},
		"summary":    map[string]interface{}{"type": "string"},
		"confidence": map[string]interface{}{"type": "string", "enum": []string{"high", "medium", "low"}},
	},
	"required": []string{"threats", "summary", "confidence"},
}
