// Package main is the doctopics CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/doctopics/internal/cli"
	"github.com/hyperjump/doctopics/internal/config"
	"github.com/hyperjump/doctopics/internal/extract"
	"github.com/hyperjump/doctopics/internal/fileid"
	"github.com/hyperjump/doctopics/internal/indexer"
	"github.com/hyperjump/doctopics/internal/keyword"
	"github.com/hyperjump/doctopics/internal/models"
	"github.com/hyperjump/doctopics/internal/search"
	"github.com/hyperjump/doctopics/internal/server"
	"github.com/hyperjump/doctopics/internal/storage"
	"github.com/hyperjump/doctopics/internal/watcher"
	"github.com/hyperjump/doctopics/pkg/utils"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "config.yaml"

// configPathDefault is the --config default: $DOCTOPICS_CONFIG when set, else config.yaml.
func configPathDefault() string {
	if p := os.Getenv(config.EnvConfigPath); p != "" {
		return p
	}
	return defaultConfigPath
}

// loadConfig loads config from path. When path is the default and no such file
// exists, defaults relative to the current directory are used.
// Returns the config and the path that was actually loaded ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, "", err
		}
		path = filepath.Join(cwd, defaultConfigPath)
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return config.Default(cwd), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "analyze":
		runAnalyze()
	case "runs":
		runRuns()
	case "show":
		runShow()
	case "search":
		runSearch()
	case "delete":
		runDelete()
	case "serve", "server":
		runServe()
	case "watch":
		runWatch()
	case "version", "--version", "-v":
		fmt.Printf("doctopics version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads the config, creates the logger and opens storage and the index.
func setup(configPath string, debug bool) (*config.Config, *zap.Logger, *Components) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debugMode))

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	return cfg, logger, components
}

func parseFormat(s string) cli.OutputFormat {
	format, err := cli.ParseOutputFormat(s)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	return format
}

func runAnalyze() {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	configPath := fs.String("config", configPathDefault(), "config file path")
	k := fs.Int("k", 0, "number of clusters (default from config)")
	numTopics := fs.Int("topics", 0, "number of LDA topics (default from config)")
	outputFormat := fs.String("output", "text", "output format: text, json or csv (scatter points)")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])
	format := parseFormat(*outputFormat)

	_, logger, components := setup(*configPath, *debug)
	defer logger.Sync()
	defer components.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := components.Indexer.Analyze(ctx, &models.AnalyzeRequest{
		Directories: fs.Args(),
		K:           *k,
		NumTopics:   *numTopics,
	})
	if err != nil {
		fmt.Printf("Failed to analyze corpus: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteRunSummary(os.Stdout, res, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runRuns() {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	configPath := fs.String("config", configPathDefault(), "config file path")
	limit := fs.Int("limit", 20, "number of runs to list")
	outputFormat := fs.String("output", "text", "output format: text, json or csv")
	_ = fs.Parse(os.Args[2:])
	format := parseFormat(*outputFormat)

	_, logger, components := setup(*configPath, false)
	defer logger.Sync()
	defer components.Close()

	runs, err := components.Storage.ListRuns(context.Background(), 0, *limit)
	if err != nil {
		fmt.Printf("Failed to list runs: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteRuns(os.Stdout, runs, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// resolveRunID maps "latest" (or empty) to the most recent run and rejects
// anything else that is not a run ID.
func resolveRunID(ctx context.Context, store storage.Storage, id string) (string, error) {
	if id != "" && id != "latest" {
		if !fileid.ValidRunID(id) {
			return "", fmt.Errorf("invalid run ID %q", id)
		}
		return id, nil
	}
	run, err := store.LatestRun(ctx)
	if err != nil {
		return "", err
	}
	return run.ID, nil
}

func runShow() {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	configPath := fs.String("config", configPathDefault(), "config file path")
	outputFormat := fs.String("output", "text", "output format: text, json or csv (scatter points)")
	_ = fs.Parse(os.Args[2:])
	format := parseFormat(*outputFormat)

	_, logger, components := setup(*configPath, false)
	defer logger.Sync()
	defer components.Close()

	ctx := context.Background()
	runID, err := resolveRunID(ctx, components.Storage, fs.Arg(0))
	if err != nil {
		fmt.Printf("Failed to find run: %v\n", err)
		os.Exit(1)
	}
	run, err := components.Storage.GetRun(ctx, runID)
	if err != nil {
		fmt.Printf("Failed to load run: %v\n", err)
		os.Exit(1)
	}
	docs, err := components.Storage.GetAssignments(ctx, runID)
	if err != nil {
		fmt.Printf("Failed to load documents: %v\n", err)
		os.Exit(1)
	}
	topics, err := components.Storage.GetTopics(ctx, runID)
	if err != nil {
		fmt.Printf("Failed to load topics: %v\n", err)
		os.Exit(1)
	}

	if format == cli.OutputText {
		if err := cli.WriteRuns(os.Stdout, []*models.Run{run}, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println()
		cli.WriteTopics(os.Stdout, topics)
		fmt.Println()
	}
	if err := cli.WriteAssignments(os.Stdout, docs, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// printSearchUsage prints search subcommand usage.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: doctopics search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  doctopics search orbit shuttle
  doctopics search --cluster 2 "patient treatment"   # only documents of cluster 2
  doctopics search --run <run-id> --fuzzy 1 nasa     # typo tolerant, specific run
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// clusterFilter turns the --cluster flag into a filter; negative means all clusters.
func clusterFilter(c int) *int {
	if c < 0 {
		return nil
	}
	return &c
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", configPathDefault(), "config file path")
	runID := fs.String("run", "", "run ID to search (default: latest run)")
	cluster := fs.Int("cluster", -1, "only return documents of this cluster (-1 = all)")
	limit := fs.Int("limit", 10, "number of results")
	fuzziness := fs.Int("fuzzy", 0, "edit distance for typo tolerant matching (0 = exact)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}
	format := parseFormat(*outputFormat)

	_, logger, components := setup(*configPath, false)
	defer logger.Sync()
	defer components.Close()

	engine := components.Engine
	if *fuzziness > 0 {
		engine = search.NewEngine(components.Storage, components.KeywordIndex, search.WithFuzziness(*fuzziness))
	}
	response, err := engine.Search(context.Background(), &models.SearchQuery{
		Query:   queryStr,
		Limit:   *limit,
		RunID:   *runID,
		Cluster: clusterFilter(*cluster),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", configPathDefault(), "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: doctopics delete [flags] <run-id|latest>")
		os.Exit(1)
	}
	_, logger, components := setup(*configPath, false)
	defer logger.Sync()
	defer components.Close()

	ctx := context.Background()
	id, err := resolveRunID(ctx, components.Storage, fs.Arg(0))
	if err != nil {
		fmt.Printf("Deletion failed: %v\n", err)
		os.Exit(1)
	}
	if err := components.Indexer.DeleteRun(ctx, id); err != nil {
		fmt.Printf("Deletion failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Run deleted: %s\n", id)
}

// newCorpusWatcher re-runs the analysis whenever the corpus changes.
func newCorpusWatcher(cfg *config.Config, idx *indexer.Indexer, logger *zap.Logger) *watcher.Watcher {
	return watcher.NewWatcher(
		cfg.Corpus.Directories,
		cfg.Corpus.Extensions,
		cfg.Corpus.RecursiveOrDefault(),
		func(ctx context.Context) {
			res, err := idx.Analyze(ctx, nil)
			if err != nil {
				logger.Warn("re-analysis failed", zap.Error(err))
				return
			}
			logger.Info("re-analysis done", zap.String("run_id", res.RunID), zap.Ints("cluster_sizes", res.ClusterSizes()))
		},
		watcher.WithDebounce(time.Duration(cfg.Watch.DebounceMS)*time.Millisecond),
		watcher.WithLogger(logger),
	)
}

func runServe() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", configPathDefault(), "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	watch := fs.Bool("watch", false, "re-analyze when the corpus changes")
	_ = fs.Parse(os.Args[2:])

	cfg, logger, components := setup(*configPath, *debug)
	defer logger.Sync()
	defer components.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if *watch {
		w := newCorpusWatcher(cfg, components.Indexer, logger)
		if err := w.Start(ctx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer w.Stop()
	}

	srv := server.NewServer(components.Engine, components.Indexer, components.Storage, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

func runWatch() {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	configPath := fs.String("config", configPathDefault(), "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, logger, components := setup(*configPath, *debug)
	defer logger.Sync()
	defer components.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := components.Indexer.Analyze(ctx, nil)
	if err != nil {
		fmt.Printf("Failed to analyze corpus: %v\n", err)
		os.Exit(1)
	}
	_ = cli.WriteRunSummary(os.Stdout, res, cli.OutputText)

	w := newCorpusWatcher(cfg, components.Indexer, logger)
	if err := w.Start(ctx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	fmt.Printf("Watching %s (Ctrl+C to stop)\n", strings.Join(w.Directories(), ", "))
	<-ctx.Done()
	w.Stop()
}

// Components holds initialized services.
type Components struct {
	Storage      storage.Storage
	KeywordIndex keyword.Index
	Engine       *search.Engine
	Indexer      *indexer.Indexer
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	keywordIndex, err := keyword.NewBleveIndex(cfg.Storage.IndexPath)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}
	return &Components{
		Storage:      store,
		KeywordIndex: keywordIndex,
		Engine:       search.NewEngine(store, keywordIndex),
		Indexer:      indexer.NewIndexer(store, keywordIndex, cfg, extract.NewExtractor(), indexer.WithLogger(logger)),
	}, nil
}

func printUsage() {
	fmt.Println(`doctopics - Topic modeling and document clustering for local corpora

Usage:
  doctopics analyze [flags] [dir...]   Analyze the corpus and record a run
  doctopics runs [flags]               List recorded runs
  doctopics show [flags] [run-id]      Show a run (default: latest)
  doctopics search [flags] <query>     Keyword search over a run
  doctopics delete [flags] <run-id>    Delete a run
  doctopics serve [flags]              Start the HTTP API
  doctopics watch [flags]              Re-analyze whenever the corpus changes
  doctopics version                    Show version
  doctopics help                       Show this help

Common Flags:
  --config string    Config file path (default: $DOCTOPICS_CONFIG or ./config.yaml)

Analyze Flags:
  --k int            Number of clusters (default from config)
  --topics int       Number of LDA topics (default from config)
  --output string    text, json or csv (scatter points index,id,category,label,x,y)
  --debug            Enable debug logging

Show / Runs Flags:
  --output string    text, json or csv

Search Flags:
  --run string       Run ID (default: latest run)
  --cluster int      Restrict to one cluster (default: -1, all)
  --fuzzy int        Edit distance for typo tolerance (default: 0)
  --limit int        Number of results (default: 10)
  --output string    text or json

Serve Flags:
  --debug            Enable debug logging
  --watch            Re-analyze when the corpus changes

Examples:
  doctopics analyze ./corpus
  doctopics analyze --k 4 --topics 4 --output csv ./20news > scatter.csv
  doctopics runs
  doctopics show --output csv latest
  doctopics search --cluster 1 orbit
  doctopics serve --watch`)
}
