// Package osint enriches a case with open-source intelligence about a named
// threat actor group, retrieved through the configured LLM provider.
package osint

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/dfirlab/casetrace/internal/analyzer"
)

// TTP is one tactic/technique/procedure attributed to a threat actor.
type TTP struct {
	Tactic      string `json:"tactic"`
	Technique   string `json:"technique"`
	Description string `json:"description"`
}

// IOCSet groups indicators by category as returned from enrichment.
type IOCSet struct {
	IPAddresses    []string `json:"ip_addresses"`
	Domains        []string `json:"domains"`
	FileHashes     []string `json:"file_hashes"`
	EmailAddresses []string `json:"email_addresses"`
	Executables    []string `json:"executables"`
	RegistryKeys   []string `json:"registry_keys"`
	UserAgents     []string `json:"user_agents"`
	Other          []string `json:"other"`
}

// Intelligence is the enrichment result for one threat actor group.
type Intelligence struct {
	ThreatActor string   `json:"threat_actor"`
	TTPs        []TTP    `json:"ttps"`
	IOCs        IOCSet   `json:"iocs"`
	Sources     []string `json:"sources,omitempty"`
}

// AllIOCs flattens every IOC category into a single list.
func (i *Intelligence) AllIOCs() []string {
	var all []string
	for _, group := range [][]string{
		i.IOCs.IPAddresses, i.IOCs.Domains, i.IOCs.FileHashes,
		i.IOCs.EmailAddresses, i.IOCs.Executables, i.IOCs.RegistryKeys,
		i.IOCs.UserAgents, i.IOCs.Other,
	} {
		for _, ioc := range group {
			if s := strings.TrimSpace(ioc); s != "" {
				all = append(all, s)
			}
		}
	}
	return all
}

// TTPLines renders TTPs as "Technique: description" lines for prompts.
func (i *Intelligence) TTPLines() []string {
	lines := make([]string, 0, len(i.TTPs))
	for _, t := range i.TTPs {
		name := t.Technique
		if name == "" {
			name = t.Tactic
		}
		if name == "" {
			name = "Unknown"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", name, t.Description))
	}
	return lines
}

const cacheSize = 32

// Service retrieves and caches threat actor intelligence. The cache avoids
// re-querying the provider when multiple stages ask about the same actor.
type Service struct {
	provider analyzer.Provider
	cache    *lru.Cache[string, *Intelligence]
	log      *zap.Logger
}

// NewService creates a Service backed by the given provider.
func NewService(provider analyzer.Provider, log *zap.Logger) (*Service, error) {
	cache, err := lru.New[string, *Intelligence](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("intel cache: %w", err)
	}
	return &Service{provider: provider, cache: cache, log: log}, nil
}

// Lookup returns intelligence for the actor group, from cache when available.
// Actor names are cache-keyed case-insensitively.
func (s *Service) Lookup(ctx context.Context, actor string) (*Intelligence, error) {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return nil, fmt.Errorf("empty threat actor group")
	}

	key := strings.ToLower(actor)
	if intel, ok := s.cache.Get(key); ok {
		s.log.Debug("intel cache hit", zap.String("actor", actor))
		return intel, nil
	}

	if fs, ok := s.provider.(analyzer.FormatSetter); ok {
		fs.SetFormat(IntelligenceSchema)
	}

	raw, err := s.provider.Analyze(ctx, IntelSystemPrompt, BuildIntelPrompt(actor))
	if err != nil {
		return nil, fmt.Errorf("intel lookup for %q: %w", actor, err)
	}

	intel, err := ParseIntelligence(raw)
	if err != nil {
		return nil, fmt.Errorf("intel lookup for %q: %w", actor, err)
	}
	if intel.ThreatActor == "" {
		intel.ThreatActor = actor
	}

	s.cache.Add(key, intel)
	s.log.Debug("intel retrieved",
		zap.String("actor", actor),
		zap.Int("ttps", len(intel.TTPs)),
		zap.Int("iocs", len(intel.AllIOCs())))
	return intel, nil
}

// ParseIntelligence parses an Intelligence from raw LLM output.
func ParseIntelligence(rawOutput string) (*Intelligence, error) {
	cleaned := analyzer.CleanJSONResponse(rawOutput)

	if err := analyzer.ValidateJSON(cleaned, IntelligenceSchema); err != nil {
		return nil, err
	}

	var intel Intelligence
	if err := json.Unmarshal([]byte(cleaned), &intel); err != nil {
		return nil, fmt.Errorf("parse intelligence: %w", err)
	}
	return &intel, nil
}
