package analyzer

import (
	"fmt"
	"strings"

	"github.com/dfirlab/casetrace/internal/casefile"
	"github.com/dfirlab/casetrace/internal/heuristics"
)

// SystemPrompt is the forensic analyst persona used for every analysis call.
const SystemPrompt = `You are an expert digital forensics and incident response (DFIR) analyst investigating exported forensic tool data (process lists, event logs, file system artifacts, network telemetry).

FABRICATION PROHIBITION:
- NEVER generate IP addresses, domain names, file hashes, file paths, usernames, or filenames that do not appear verbatim in the provided input data.
- If a suspicious pattern is expected but not present in the data, state "not observed in data"; do not invent representative examples.
- Every specific artifact cited in your findings MUST be quoted directly from the input.

ANALYSIS RULES:
1. Every threat MUST cite specific data from the input.
2. Consider both a benign explanation and a malicious explanation before concluding.
3. Weigh the case context: the case type, the named threat actor group's known TTPs, and the provided IOC list.
4. If data is insufficient to make a determination, say so; do not speculate.

Respond ONLY with a JSON object matching this structure:
{
  "threats": [
    {
      "type": "malware|suspicious_process|network_anomaly|file_anomaly|other",
      "severity": "critical|high|medium|low",
      "description": "what was found and why it is suspicious",
      "indicators": ["artifact quoted from input"],
      "recommendation": "what should be done"
    }
  ],
  "summary": "overall assessment of this data source",
  "confidence": "high|medium|low"
}`

const (
	maxPromptIOCs  = 20
	maxPromptTTPs  = 5
	maxPromptFlags = 20
)

// BuildAnalysisPrompt creates the user prompt for one data source.
// TTP lines are pre-rendered "Technique: description" strings from OSINT
// enrichment; flags are the heuristic hits already found in this source.
func BuildAnalysisPrompt(caseCtx casefile.Context, ttps []string, iocs []string, flags []heuristics.Flag, source, summary, sample string) string {
	var b strings.Builder

	b.WriteString("Case Context:\n")
	if caseCtx.Type != "" {
		fmt.Fprintf(&b, "Case Type: %s\n", caseCtx.Type)
	} else {
		b.WriteString("Case Type: not specified (open-ended analysis)\n")
	}
	if caseCtx.ThreatActor != "" {
		fmt.Fprintf(&b, "Threat Actor Group: %s\n", caseCtx.ThreatActor)
	}

	if len(iocs) > 0 {
		shown := iocs
		if len(shown) > maxPromptIOCs {
			shown = shown[:maxPromptIOCs]
		}
		fmt.Fprintf(&b, "Known IOCs to search for: %s\n", strings.Join(shown, ", "))
		if len(iocs) > maxPromptIOCs {
			fmt.Fprintf(&b, "... and %d more IOCs\n", len(iocs)-maxPromptIOCs)
		}
	}

	if len(ttps) > 0 {
		fmt.Fprintf(&b, "Known TTPs of the threat actor (%d total):\n", len(ttps))
		for i, ttp := range ttps {
			if i == maxPromptTTPs {
				fmt.Fprintf(&b, "  ... and %d more\n", len(ttps)-maxPromptTTPs)
				break
			}
			fmt.Fprintf(&b, "  - %s\n", ttp)
		}
	}

	if len(flags) > 0 {
		fmt.Fprintf(&b, "\nHeuristic pattern hits already found in this source (%d total):\n", len(flags))
		for i, f := range flags {
			if i == maxPromptFlags {
				fmt.Fprintf(&b, "  ... and %d more\n", len(flags)-maxPromptFlags)
				break
			}
			fmt.Fprintf(&b, "  - [%s] %s\n", f.Severity, f.Description)
		}
	}

	fmt.Fprintf(&b, "\nData Source: %s\n", source)
	fmt.Fprintf(&b, "\nData Summary:\n%s\n", summary)
	fmt.Fprintf(&b, "\nSample Data:\n%s\n", sample)

	b.WriteString(`
Analyze this data with focus on:
1. Indicators matching the provided IOCs
2. Activity consistent with the case type
3. TTPs associated with the threat actor group
4. Suspicious files, processes, accounts, or network activity
5. Unusual patterns or anomalies

Respond with the JSON structure described in your instructions.`)

	return b.String()
}
