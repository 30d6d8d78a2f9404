// Package main is the CLI entry point for casetrace.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dfirlab/casetrace/internal/analyzer"
	"github.com/dfirlab/casetrace/internal/config"
	"github.com/dfirlab/casetrace/internal/logging"
	"github.com/dfirlab/casetrace/internal/orchestrator"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "casetrace",
		Short: "Forensic export triage with heuristic detection and LLM-based analysis",
		Long: `casetrace ingests forensic export files (CSV, XLSX, delimited text) from a
directory tree, flags suspicious patterns, searches for indicators of
compromise, requests an LLM threat assessment, and produces a timeline CSV
plus JSON and text reports.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)

	rootCmd.PersistentFlags().StringP("config", "c", "config.toml", "path to config file")
	rootCmd.PersistentFlags().String("api-key", "", "LLM API key (overrides config and environment)")
	rootCmd.PersistentFlags().String("model-name", "", "LLM model name (overrides config)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")

	rootCmd.AddCommand(newAnalyzeCmd(), newTestGeminiCmd(), newListModelsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies provider flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if apiKey, _ := cmd.Flags().GetString("api-key"); apiKey != "" {
		cfg.LLM.APIKey = apiKey
	}
	if model, _ := cmd.Flags().GetString("model-name"); model != "" {
		cfg.LLM.Model = model
	}
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <data_directory>",
		Short: "Run the full analysis pipeline on a directory of forensic exports",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			verbose, _ := cmd.Flags().GetBool("verbose")
			outputDir, _ := cmd.Flags().GetString("output-dir")
			noOSINT, _ := cmd.Flags().GetBool("no-osint")
			if nonInteractive, _ := cmd.Flags().GetBool("non-interactive"); nonInteractive {
				cfg.Case.Interactive = false
			}
			if analyst, _ := cmd.Flags().GetString("analyst"); analyst != "" {
				cfg.Case.Analyst = analyst
			}
			if caseType, _ := cmd.Flags().GetString("case-type"); caseType != "" {
				cfg.Case.CaseType = caseType
			}
			if actor, _ := cmd.Flags().GetString("actor"); actor != "" {
				cfg.Case.ThreatActor = actor
			}
			if iocs, _ := cmd.Flags().GetString("iocs"); iocs != "" {
				cfg.Case.IOCs = append(cfg.Case.IOCs, iocs)
			}

			log, err := logging.New(verbose)
			if err != nil {
				return fmt.Errorf("logger: %w", err)
			}
			defer log.Sync()

			orch := orchestrator.New(cfg, orchestrator.Options{
				DataDir:   args[0],
				OutputDir: outputDir,
				NoOSINT:   noOSINT,
				Verbose:   verbose,
				Version:   fmt.Sprintf("%s (%s)", version, commit),
			}, log)
			return orch.Run(cmd.Context())
		},
	}
	cmd.Flags().StringP("output-dir", "o", "", "directory for reports and timeline (default from config)")
	cmd.Flags().Bool("no-osint", false, "skip OSINT threat actor enrichment")
	cmd.Flags().Bool("non-interactive", false, "never prompt; use config values and defaults")
	cmd.Flags().String("analyst", "", "analyst name")
	cmd.Flags().String("case-type", "", "case type (Ransomware, BEC, Intrusion, Other)")
	cmd.Flags().String("actor", "", "threat actor group for OSINT enrichment")
	cmd.Flags().String("iocs", "", "known IOCs, separated by commas, semicolons, or pipes")
	return cmd
}

func newTestGeminiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test-gemini",
		Short: "Send a minimal request to verify Gemini connectivity and credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.LLM.APIKey == "" {
				return fmt.Errorf("no API key configured (set GEMINI_API_KEY or --api-key)")
			}

			provider, err := analyzer.NewProvider("gemini", cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.Endpoint, cfg.LLM.Timeout)
			if err != nil {
				return err
			}
			reply, err := provider.Analyze(cmd.Context(),
				"You are a connectivity check. Respond with JSON only.",
				`Respond with exactly {"status": "ok"}`)
			if err != nil {
				return fmt.Errorf("gemini request failed: %w", err)
			}
			fmt.Printf("Gemini connection OK (model %s)\nResponse: %s\n", cfg.LLM.Model, reply)
			return nil
		},
	}
}

func newListModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-models",
		Short: "List models available from the configured provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			provider, err := analyzer.NewProvider(cfg.LLM.Provider, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.Endpoint, cfg.LLM.Timeout)
			if err != nil {
				return err
			}
			lister, ok := provider.(analyzer.ModelLister)
			if !ok {
				return fmt.Errorf("provider %q does not support model listing", cfg.LLM.Provider)
			}
			models, err := lister.ListModels(cmd.Context())
			if err != nil {
				return fmt.Errorf("list models: %w", err)
			}
			for _, m := range models {
				fmt.Println(m)
			}
			return nil
		},
	}
}
