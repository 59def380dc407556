// Command blureffect prints the blur effect metric of local image files.
//
//	blureffect [flags] FILE...
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/anime-shed/blur-effect-go/internal/analyzer"
	"github.com/anime-shed/blur-effect-go/internal/logger"
	"github.com/anime-shed/blur-effect-go/internal/observer"
	"github.com/anime-shed/blur-effect-go/internal/report"
	"github.com/anime-shed/blur-effect-go/internal/storage"
	"github.com/anime-shed/blur-effect-go/internal/strategy"
	"github.com/anime-shed/blur-effect-go/pkg/models"

	"github.com/joho/godotenv"
)

// cliConfig holds the parsed command line
type cliConfig struct {
	WindowSize  int
	ChannelAxis string
	Aggregate   string
	Threshold   float64
	Strict      bool
	Parallel    bool
	PlotDir     string
	JSON        bool
	LogLevel    string
	Files       []string
}

func main() {
	// Optional .env supplies LOG_LEVEL and BLUR_* defaults
	_ = godotenv.Load()
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func parseFlags(args []string, stderr io.Writer) (cliConfig, error) {
	var cfg cliConfig
	fs := flag.NewFlagSet("blureffect", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: blureffect [flags] FILE...\n\nFlags:\n")
		fs.PrintDefaults()
	}

	fs.IntVar(&cfg.WindowSize, "window", analyzer.DefaultWindowSize, "Re-blurring filter size")
	fs.StringVar(&cfg.ChannelAxis, "channel-axis", "", "Colour channel axis; empty detects colour images, \"none\" disables detection")
	fs.StringVar(&cfg.Aggregate, "aggregate", envOrDefault("BLUR_AGGREGATE", strategy.DefaultStrategy),
		"Per-axis reduction: "+strings.Join(strategy.Names(), ", "))
	fs.Float64Var(&cfg.Threshold, "threshold", analyzer.DefaultBlurThreshold, "Score at or above which an image is blurry")
	fs.BoolVar(&cfg.Strict, "strict", false, "Fail files with an undefined axis")
	fs.BoolVar(&cfg.Parallel, "parallel", false, "Estimate axes concurrently")
	fs.StringVar(&cfg.PlotDir, "plot", "", "Write a per-axis bar chart per file to this directory")
	fs.BoolVar(&cfg.JSON, "json", false, "Print one JSON result per line")
	fs.StringVar(&cfg.LogLevel, "log-level", envOrDefault("LOG_LEVEL", "warn"), "Log level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	cfg.Files = fs.Args()
	if len(cfg.Files) == 0 {
		fs.Usage()
		return cfg, fmt.Errorf("no input files")
	}
	if cfg.WindowSize < 1 {
		return cfg, fmt.Errorf("-window must be >= 1 (got %d)", cfg.WindowSize)
	}
	if cfg.Threshold <= 0 || cfg.Threshold > 1 {
		return cfg, fmt.Errorf("-threshold must be in (0, 1] (got %g)", cfg.Threshold)
	}
	return cfg, nil
}

func buildOptions(cfg cliConfig) (analyzer.AnalysisOptions, error) {
	strat, err := strategy.Lookup(cfg.Aggregate)
	if err != nil {
		return analyzer.AnalysisOptions{}, err
	}
	opts := strat.Apply(analyzer.DefaultOptions()).
		WithWindowSize(cfg.WindowSize).
		WithThreshold(cfg.Threshold)

	axis, err := analyzer.ParseChannelAxis(cfg.ChannelAxis)
	if err != nil {
		return opts, err
	}
	opts.Estimate.ChannelAxis = axis
	opts.NoChannelAxis = analyzer.IsNoChannelAxis(cfg.ChannelAxis)

	if cfg.Strict {
		opts.Estimate = opts.Estimate.WithStrict()
	}
	if cfg.Parallel {
		opts.Estimate = opts.Estimate.WithParallel(0)
	}
	return opts, nil
}

// run analyzes every file and returns the process exit code
func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := parseFlags(args, stderr)
	if err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		fmt.Fprintf(stderr, "blureffect: %v\n", err)
		return 2
	}

	logger.SetOutput(stderr)
	logger.Configure(cfg.LogLevel, "text")

	opts, err := buildOptions(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "blureffect: %v\n", err)
		return 2
	}

	events := observer.NewEventPublisher()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	blur := analyzer.NewBlurAnalyzer(nil, nil, events)
	defer blur.Close()

	fetcher := storage.NewLocalFileFetcher("")
	encoder := json.NewEncoder(stdout)
	ctx := context.Background()

	failed := 0
	for _, file := range cfg.Files {
		result, err := analyzeFile(ctx, fetcher, blur, file, opts)
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", file, err)
			failed++
			continue
		}

		if cfg.PlotDir != "" {
			chart := filepath.Join(cfg.PlotDir, chartName(file))
			if err := report.WriteAxisChart(chart, result); err != nil {
				fmt.Fprintf(stderr, "%s: %v\n", file, err)
				failed++
			}
		}

		if cfg.JSON {
			if err := encoder.Encode(result); err != nil {
				fmt.Fprintf(stderr, "%s: %v\n", file, err)
				failed++
			}
			continue
		}
		fmt.Fprintln(stdout, formatLine(file, result))
	}

	if failed > 0 {
		return 1
	}
	return 0
}

func analyzeFile(ctx context.Context, fetcher storage.ImageFetcher, blur analyzer.BlurAnalyzer, file string, opts analyzer.AnalysisOptions) (*models.AnalysisResult, error) {
	img, err := fetcher.FetchImage(ctx, file)
	if err != nil {
		return nil, err
	}
	result, err := blur.AnalyzeWithOptions(img, opts)
	if err != nil {
		return nil, err
	}
	result.ImageURL = file
	return &result, nil
}

// formatLine renders "FILE: score=S axes=[...] blurry=B"; undefined values print as NaN
func formatLine(file string, result *models.AnalysisResult) string {
	axes := make([]string, len(result.Metrics.PerAxis))
	for i, v := range result.Metrics.PerAxis {
		axes[i] = formatValue(v)
	}
	return fmt.Sprintf("%s: score=%s axes=[%s] blurry=%t",
		file, formatValue(result.Metrics.BlurScore), strings.Join(axes, " "), result.Quality.Blurry)
}

func formatValue(v *float64) string {
	if v == nil {
		return "NaN"
	}
	return fmt.Sprintf("%.4f", *v)
}

func chartName(file string) string {
	base := filepath.Base(file)
	return strings.TrimSuffix(base, filepath.Ext(base)) + "_blur.png"
}

func envOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
