package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/coolbeans/lexchain/pkg/config"
	"github.com/coolbeans/lexchain/pkg/docstore"
	"github.com/coolbeans/lexchain/pkg/oracle"
	"github.com/coolbeans/lexchain/pkg/override"
	"github.com/coolbeans/lexchain/pkg/pipeline"
	"github.com/coolbeans/lexchain/pkg/run"
	"github.com/coolbeans/lexchain/pkg/statute"
	"github.com/coolbeans/lexchain/pkg/versioning"
)

var version = "0.1.0"

// Global flags shared by every subcommand.
var (
	storePath    string
	configPath   string
	overridePath string
	sheetPath    string
	evalTimeFlag string
	verbose      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "lexchain",
		Short: "Statute identity resolution and version-chain construction",
		Long: `Lexchain turns a flat set of ingested statute records into canonical
entities: deduplicated statutes, base groups, ordered version chains, and
per-section version timelines with active status.

Stages run in strict order:
  1. dedupe    - collapse near-identical records
  2. group     - partition into base groups
  3. versions  - assign Original/Amendment labels
  4. sections  - align sections across versions
  5. activate  - mark the single active section version`,
		Version: version,
	}

	rootCmd.PersistentFlags().StringVar(&storePath, "store", "lexchain.db", "document store path")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config overlay")
	rootCmd.PersistentFlags().StringVar(&overridePath, "overrides", "", "manual override registry path")
	rootCmd.PersistentFlags().StringVar(&sheetPath, "dates", "", "CSV date sheet for backfill")
	rootCmd.PersistentFlags().StringVar(&evalTimeFlag, "eval-time", "", "evaluation time (YYYY-MM-DD), default now")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "debug logging")

	rootCmd.AddCommand(loadCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(stageCmd("dedupe", 1, "Run stage 1: deduplication"))
	rootCmd.AddCommand(stageCmd("group", 2, "Run stage 2: base-name grouping"))
	rootCmd.AddCommand(stageCmd("versions", 3, "Run stage 3: version-chain assignment"))
	rootCmd.AddCommand(stageCmd("sections", 4, "Run stage 4: section alignment"))
	rootCmd.AddCommand(stageCmd("activate", 5, "Run stage 5: active-status computation"))
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(overrideCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger builds the run logger honoring --verbose.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// setup opens the collaborators shared by every stage command.
func setup() (*docstore.Store, *pipeline.Pipeline, *run.Context, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	store, err := docstore.Open(storePath)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	logger := newLogger()

	registry, err := override.Open(overridePath)
	if err != nil {
		store.Close()
		return nil, nil, nil, nil, err
	}

	var cache *oracle.AnswerCache
	var inner oracle.Decider = oracle.HeuristicDecider{}
	if cfg.Oracle.Enabled {
		httpDecider, err := oracle.NewHTTPDecider(oracle.Options{
			BaseURL:           cfg.Oracle.BaseURL,
			Model:             cfg.Oracle.Model,
			APIKeyEnv:         cfg.Oracle.APIKeyEnv,
			Timeout:           cfg.Oracle.Timeout,
			RequestsPerMinute: cfg.Oracle.RequestsPerMinute,
			MaxRetries:        cfg.Oracle.MaxRetries,
			BackoffBase:       cfg.Oracle.BackoffBase,
			BreakerThreshold:  cfg.Oracle.BreakerThreshold,
		}, logger)
		if err != nil {
			store.Close()
			return nil, nil, nil, nil, err
		}
		cache = oracle.NewAnswerCache(cfg.Oracle.CachePath)
		inner = oracle.NewCachedDecider(httpDecider, cache)
	}
	decider := override.NewDecider(registry, inner)

	var sheet *versioning.DateSheet
	if sheetPath != "" {
		sheet, err = versioning.LoadDateSheet(sheetPath)
		if err != nil {
			store.Close()
			return nil, nil, nil, nil, err
		}
	}

	evalTime := time.Time{}
	if evalTimeFlag != "" {
		parsed, ok := statute.ParseFlexibleDate(evalTimeFlag)
		if !ok {
			store.Close()
			return nil, nil, nil, nil, fmt.Errorf("unparseable eval time: %s", evalTimeFlag)
		}
		evalTime = parsed
	}

	rc := run.New(logger, evalTime)
	pipe := pipeline.New(store, cfg, decider, sheet)

	cleanup := func() {
		if cache != nil {
			if err := cache.Save(); err != nil {
				logger.Warn("failed to persist oracle cache", "error", err)
			}
		}
		store.Close()
	}
	return store, pipe, rc, cleanup, nil
}

// loadCmd reads a JSON array of statute records into the raw partition.
func loadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load [records.json]",
		Short: "Load ingested statute records into the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			var records []statute.StatuteRecord
			if err := json.Unmarshal(data, &records); err != nil {
				return fmt.Errorf("failed to parse %s: %w", args[0], err)
			}
			for i := range records {
				if records[i].ContentDigest == "" {
					records[i].ContentDigest = statute.ComputeDigest(&records[i])
				}
			}

			store, err := docstore.Open(storePath)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := docstore.ReplaceTyped(store, pipeline.PartitionRaw, records); err != nil {
				return err
			}
			fmt.Printf("Loaded %d records into %s\n", len(records), pipeline.PartitionRaw)
			return nil
		},
	}
}

// runCmd executes the full pipeline, optionally restarting mid-way.
func runCmd() *cobra.Command {
	fromStage := 1
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run all pipeline stages in order",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, pipe, rc, cleanup, err := setup()
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := pipe.Run(cmd.Context(), rc, fromStage)
			if report != nil {
				fmt.Print(report.String())
			}
			return err
		},
	}
	cmd.Flags().IntVar(&fromStage, "from", 1, "first stage to run (1-5)")
	return cmd
}

// stageCmd runs a single stage.
func stageCmd(name string, stage int, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, pipe, rc, cleanup, err := setup()
			if err != nil {
				return err
			}
			defer cleanup()

			if err := pipe.RunStage(cmd.Context(), rc, stage); err != nil {
				return err
			}
			snapshot := rc.Stats.Snapshot()
			fmt.Printf("Stage %d complete: merged=%d kept-separate=%d filtered=%d oracle-used=%d oracle-failed=%d\n",
				stage, snapshot.Merged, snapshot.KeptSeparate, snapshot.Filtered,
				snapshot.OracleUsed, snapshot.OracleFailed)
			return nil
		},
	}
}

// statsCmd prints the latest run report and partition counts.
func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the latest run report and partition counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := docstore.Open(storePath)
			if err != nil {
				return err
			}
			defer store.Close()

			reports, _, err := docstore.ReadTyped[pipeline.Report](store, pipeline.PartitionReport)
			if err == nil && len(reports) > 0 {
				fmt.Print(reports[0].String())
			}

			partitions, err := store.ListPartitions("")
			if err != nil {
				return err
			}
			fmt.Println("Partitions:")
			for _, name := range partitions {
				count, err := store.Count(name)
				if err != nil {
					return err
				}
				fmt.Printf("  %-20s %d\n", name, count)
			}
			return nil
		},
	}
}

// overrideCmd manages the manual override registry.
func overrideCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "override",
		Short: "Manage manual overrides",
	}

	var kind, keyA, keyB, answer, note string
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Record a manual override for a pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := override.Open(overridePath)
			if err != nil {
				return err
			}
			entry := override.Entry{
				Kind:   oracle.QuestionKind(kind),
				KeyA:   keyA,
				KeyB:   keyB,
				Answer: oracle.Answer(answer),
				Note:   note,
			}
			if err := registry.Add(entry); err != nil {
				return err
			}
			fmt.Println("Override recorded")
			return nil
		},
	}
	addCmd.Flags().StringVar(&kind, "kind", string(oracle.QuestionEquivalence), "question kind")
	addCmd.Flags().StringVar(&keyA, "a", "", "first key (statute or section title)")
	addCmd.Flags().StringVar(&keyB, "b", "", "second key")
	addCmd.Flags().StringVar(&answer, "answer", string(oracle.AnswerYes), "yes or no")
	addCmd.Flags().StringVar(&note, "note", "", "reviewer note")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded overrides",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := override.Open(overridePath)
			if err != nil {
				return err
			}
			for _, entry := range registry.List() {
				fmt.Printf("%s | %s | %s -> %s (%s)\n",
					entry.Kind, entry.KeyA, entry.KeyB, entry.Answer, entry.Note)
			}
			return nil
		},
	}

	cmd.AddCommand(addCmd)
	cmd.AddCommand(listCmd)
	return cmd
}
