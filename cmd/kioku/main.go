// Package main is the kioku CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/kioku/internal/archive"
	"github.com/hyperjump/kioku/internal/cli"
	"github.com/hyperjump/kioku/internal/config"
	"github.com/hyperjump/kioku/internal/embedding"
	"github.com/hyperjump/kioku/internal/extract"
	"github.com/hyperjump/kioku/internal/fileid"
	"github.com/hyperjump/kioku/internal/keyword"
	"github.com/hyperjump/kioku/internal/models"
	"github.com/hyperjump/kioku/internal/pipeline"
	"github.com/hyperjump/kioku/internal/server"
	"github.com/hyperjump/kioku/internal/transcript"
	"github.com/hyperjump/kioku/internal/vector"
	"github.com/hyperjump/kioku/internal/watcher"
	"github.com/hyperjump/kioku/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kioku/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used, so that "kioku server" from the project dir uses the project's
// config (including debug). A missing default file is not an error: the
// server runs on built-in defaults. Returns the config and the path that was
// actually loaded ("" when defaults were used).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			return config.Default(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// Pick up OPENAI_API_KEY and friends from a project-local .env if present.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "query":
		runQuery()
	case "sources":
		runSources()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("kioku version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (chunk counts, watch events, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if resolvedConfigPath == "" {
		logger.Info("no config file found, using defaults", zap.Bool("debug", debugMode))
	} else {
		logger.Info("config loaded",
			zap.String("config_path", resolvedConfigPath),
			zap.Bool("debug", debugMode),
		)
	}

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	var watchSvc *watcher.Watcher
	if len(cfg.Watch.Directories) > 0 {
		ing := components.Ingestor
		ext := components.Extractor
		watchSvc = watcher.New(cfg.Watch.Directories, cfg.Watch.Extensions, func(path string) {
			text, err := ext.Extract(path)
			if err != nil {
				logger.Warn("watch extract failed", zap.String("path", path), zap.Error(err))
				return
			}
			absPath, err := filepath.Abs(path)
			if err != nil {
				absPath = path
			}
			src := &models.Source{
				ID:   fileid.SourceID(absPath),
				Kind: models.SourceWatch,
				Name: filepath.Base(path),
			}
			meta := map[string]interface{}{"path": absPath}
			if _, err := ing.IngestSource(context.Background(), src, text, meta); err != nil {
				logger.Warn("watch ingest failed", zap.String("path", path), zap.Error(err))
			}
		}, watcher.WithLogger(logger))
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		watchSvc.SyncExisting()
	}

	srv := server.NewServer(server.Deps{
		Ingestor:    components.Ingestor,
		Querier:     components.Querier,
		Index:       components.Index,
		Embedder:    components.Embedder,
		Extractor:   components.Extractor,
		Keyword:     components.Keyword,
		Archive:     components.Archive,
		Transcripts: components.Transcripts,
	}, &cfg.Server, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	if watchSvc != nil {
		watchSvc.Stop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	filePath := fs.String("file", "", "upload a document file instead of raw text")
	_ = fs.Parse(os.Args[2:])

	if *filePath != "" {
		resp, err := uploadViaHTTP(*serverURL, *filePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Ingested %s: %d chunks added (source %s)\n", filepath.Base(*filePath), resp.Added, resp.SourceID)
		return
	}

	text := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if text == "" {
		// Accept piped text: "cat notes.txt | kioku ingest".
		if fi, err := os.Stdin.Stat(); err == nil && fi.Mode()&os.ModeCharDevice == 0 {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Read stdin failed: %v\n", err)
				os.Exit(1)
			}
			text = strings.TrimSpace(string(data))
		}
	}
	if text == "" {
		fmt.Println("Usage: kioku ingest [flags] <text>")
		os.Exit(1)
	}

	resp, err := ingestViaHTTP(*serverURL, text)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%d chunks added\n", resp.Added)
}

// buildQueryText joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildQueryText(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// queryArgsReorder moves any flags (and their values) that appear after the
// query to the front of the slice so that flag.Parse() sees them. Go's flag
// package stops at the first non-flag argument, so "kioku query \"text\" -k 2"
// would otherwise leave -k unparsed.
func queryArgsReorder(args []string) []string {
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

// outputFormatFromFlag maps an -output flag value to a cli format.
func outputFormatFromFlag(s string) (cli.OutputFormat, bool) {
	switch s {
	case "json":
		return cli.OutputJSON, true
	case "text":
		return cli.OutputText, true
	}
	return cli.OutputText, false
}

func runQuery() {
	queryArgs := queryArgsReorder(os.Args[2:])

	fs := flag.NewFlagSet("query", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	k := fs.Int("k", 0, "number of results (0 = server default)")
	outputFormat := fs.String("output", "text", "output format: text (human-readable) or json (parseable)")
	_ = fs.Parse(queryArgs)

	queryStr := buildQueryText(fs.Args())
	if queryStr == "" {
		fmt.Println("Usage: kioku query [flags] <text>")
		os.Exit(1)
	}
	format, ok := outputFormatFromFlag(*outputFormat)
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}

	response, err := queryViaHTTP(*serverURL, queryStr, *k)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteQueryResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runSources() {
	fs := flag.NewFlagSet("sources", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	offset := fs.Int("offset", 0, "number of sources to skip")
	limit := fs.Int("limit", 50, "number of sources to list")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, ok := outputFormatFromFlag(*outputFormat)
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}

	response, err := sourcesViaHTTP(*serverURL, *offset, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Sources failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSources(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, ok := outputFormatFromFlag(*outputFormat)
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}

	response, err := statusViaHTTP(*serverURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteStatus(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func ingestViaHTTP(serverURL, text string) (*models.IngestResponse, error) {
	body, err := json.Marshal(&models.IngestRequest{Text: text})
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/ingest", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var out models.IngestResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

func uploadViaHTTP(serverURL, path string) (*models.IngestResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/documents", mw.FormDataContentType(), &buf)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var out models.IngestResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

func queryViaHTTP(serverURL, queryStr string, k int) (*models.QueryResponse, error) {
	body, err := json.Marshal(&models.QueryRequest{Query: queryStr, K: k})
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/query", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var out models.QueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

func sourcesViaHTTP(serverURL string, offset, limit int) (*models.SourcesResponse, error) {
	resp, err := http.Get(fmt.Sprintf("%s/api/v1/sources?offset=%d&limit=%d", serverURL, offset, limit))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var out models.SourcesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

func statusViaHTTP(serverURL string) (*models.StatusResponse, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var out models.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

// Components holds initialized services.
type Components struct {
	Embedder    embedding.Embedder
	Index       *vector.Index
	Keyword     *keyword.Index
	Archive     *archive.Store
	Transcripts *transcript.Client
	Extractor   *extract.Extractor
	Ingestor    *pipeline.Ingestor
	Querier     *pipeline.Querier
}

func (c *Components) Close() {
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Keyword != nil {
		_ = c.Keyword.Close()
	}
	if c.Archive != nil {
		_ = c.Archive.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	var embedder embedding.Embedder
	switch cfg.Embedding.Provider {
	case "mock":
		embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	default:
		oa, err := embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
			Model:      cfg.Embedding.Model,
			BaseURL:    cfg.Embedding.BaseURL,
			Dimensions: cfg.Embedding.Dimensions,
			BatchSize:  cfg.Embedding.BatchSize,
			Timeout:    cfg.Embedding.Timeout(),
		})
		if err != nil {
			logger.Warn("openai embedder unavailable, falling back to mock", zap.Error(err))
			embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
		} else {
			embedder = oa
		}
	}
	logger.Info("embedder initialized",
		zap.String("name", embedder.Name()),
		zap.Int("dimensions", embedder.Dimensions()))

	index := vector.NewIndex()

	keywordIndex, err := keyword.NewMemOnly()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}

	var archiveStore *archive.Store
	if cfg.Archive.DatabasePath != "" {
		archiveStore, err = archive.NewStore(cfg.Archive.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize archive: %w", err)
		}
	}

	var transcripts *transcript.Client
	if cfg.Transcript.BaseURL != "" {
		transcripts = transcript.NewClient(cfg.Transcript.BaseURL, cfg.Transcript.Timeout())
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithKeywordIndex(keywordIndex),
	}
	if archiveStore != nil {
		opts = append(opts, pipeline.WithArchive(archiveStore))
	}
	ingestor, err := pipeline.NewIngestor(embedder, index, &cfg.Ingest, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ingestor: %w", err)
	}
	querier := pipeline.NewQuerier(embedder, index, &cfg.Query, pipeline.WithLogger(logger))

	return &Components{
		Embedder:    embedder,
		Index:       index,
		Keyword:     keywordIndex,
		Archive:     archiveStore,
		Transcripts: transcripts,
		Extractor:   extract.NewExtractor(),
		Ingestor:    ingestor,
		Querier:     querier,
	}, nil
}

func printUsage() {
	fmt.Println(`kioku - In-memory semantic retrieval service

Usage:
  kioku server [flags]            Start the HTTP server
  kioku ingest [flags] <text>     Ingest raw text (or --file for documents)
  kioku query [flags] <text>      Query the index
  kioku sources [flags]           List archived sources
  kioku status [flags]            Show index status
  kioku version                   Show version
  kioku help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kioku/config.yaml)
  --debug            Enable debug logging (chunk counts, watch events, etc.)

Ingest Flags:
  --server string    Server URL (default: http://localhost:8080)
  --file string      Upload a document file (.txt, .md, .pdf, .docx, .xlsx)

Query Flags:
  --server string    Server URL (default: http://localhost:8080)
  --k int            Number of results (default: server default, 4)
  --output string    Output format: text or json (default: text)

Sources Flags:
  --server string    Server URL (default: http://localhost:8080)
  --offset int       Number of sources to skip
  --limit int        Number of sources to list (default: 50)
  --output string    Output format: text or json (default: text)

Status Flags:
  --server string    Server URL (default: http://localhost:8080)
  --output string    Output format: text or json (default: text)

The index lives in server memory, so ingest, query, sources, and status
talk to a running server over HTTP.

Examples:
  kioku server
  kioku ingest "Tokyo is the capital of Japan."
  cat notes.txt | kioku ingest
  kioku ingest --file report.pdf
  kioku query "capital of Japan"
  kioku query --k 2 --output json "capital of Japan"
  kioku sources
  kioku status`)
}
