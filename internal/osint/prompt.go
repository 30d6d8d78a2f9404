package osint

import "fmt"

// IntelSystemPrompt instructs the model to act as a CTI researcher and
// return only well-documented, publicly attributed intelligence.
const IntelSystemPrompt = `You are a cyber threat intelligence researcher. You summarize publicly documented tradecraft of known threat actor groups for incident responders.

STRICT RULES:
1. Only report TTPs and IOCs that are publicly attributed to the named group in published threat reports.
2. If you do not recognize the group, return empty "ttps" and "iocs" rather than guessing.
3. Never invent indicators. An empty list is always better than a fabricated one.
4. Use MITRE ATT&CK technique IDs in the "technique" field where known (e.g. "T1486 Data Encrypted for Impact").
5. Respond with JSON only. No markdown, no commentary.`

// BuildIntelPrompt constructs the user prompt asking about one actor group.
func BuildIntelPrompt(actor string) string {
	return fmt.Sprintf(`Summarize the publicly documented tradecraft of the threat actor group %q.

Return a JSON object with this structure:
{
  "threat_actor": "the group name",
  "ttps": [
    {"tactic": "ATT&CK tactic", "technique": "ATT&CK technique ID and name", "description": "how the group uses it"}
  ],
  "iocs": {
    "ip_addresses": [],
    "domains": [],
    "file_hashes": [],
    "email_addresses": [],
    "executables": [],
    "registry_keys": [],
    "user_agents": [],
    "other": []
  },
  "sources": ["report or vendor names the intelligence comes from"]
}

Include only indicators with published attribution to this group.`, actor)
}

// IntelligenceSchema is the JSON Schema the provider output must satisfy.
var IntelligenceSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"threat_actor": map[string]interface{}{"type": "string"},
		"ttps": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"tactic":      map[string]interface{}{"type": "string"},
					"technique":   map[string]interface{}{"type": "string"},
					"description": map[string]interface{}{"type": "string"},
				},
				"required": []string{"description"},
			},
		},
		"iocs": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"ip_addresses":    stringArraySchema,
				"domains":         stringArraySchema,
				"file_hashes":     stringArraySchema,
				"email_addresses": stringArraySchema,
				"executables":     stringArraySchema,
				"registry_keys":   stringArraySchema,
				"user_agents":     stringArraySchema,
				"other":           stringArraySchema,
			},
		},
		"sources": stringArraySchema,
	},
	"required": []string{"ttps", "iocs"},
}

var stringArraySchema = map[string]interface{}{
	"type":  "array",
	"items": map[string]interface{}{"type": "string"},
}
