package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atikulmunna/logboard/internal/hub"
	"github.com/atikulmunna/logboard/internal/index"
	"github.com/atikulmunna/logboard/internal/logging"
	"github.com/atikulmunna/logboard/internal/output"
	"github.com/atikulmunna/logboard/internal/parser"
	"github.com/atikulmunna/logboard/internal/pipeline"
	"github.com/atikulmunna/logboard/internal/query"
	"github.com/atikulmunna/logboard/internal/tailer"
	"github.com/atikulmunna/logboard/internal/watcher"
)

var (
	tailLevel   string
	tailSection string
	tailRunName string
	tailRunID   string
	tailGroup   string
	tailSince   int
	tailFollow  bool
	tailOutput  string
)

var tailCmd = &cobra.Command{
	Use:   "tail [logfile]",
	Short: "Tail a JSON-Lines log file in the terminal",
	Long: `Tail prints log records to the terminal with level colors and
section/run tags. Filters mirror the dashboard's: level is an exact match,
the text filters match substrings case-insensitively, and --since keeps
only records from the last N seconds.

Examples:
  logboard tail logs/app.log
  logboard tail logs/app.log --level error --section loader
  logboard tail logs/app.log --no-follow --output json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTail,
}

func init() {
	tailCmd.Flags().StringVarP(&tailLevel, "level", "l", "", "filter by log level (e.g. INFO, ERROR)")
	tailCmd.Flags().StringVarP(&tailSection, "section", "s", "", "filter by section (substring)")
	tailCmd.Flags().StringVarP(&tailRunName, "run-name", "r", "", "filter by run name (substring)")
	tailCmd.Flags().StringVar(&tailRunID, "run-id", "", "filter by run id (substring)")
	tailCmd.Flags().StringVarP(&tailGroup, "group", "g", "", "filter by group (substring)")
	tailCmd.Flags().IntVarP(&tailSince, "since", "t", 0, "only show records from the last N seconds")
	tailCmd.Flags().BoolVarP(&tailFollow, "follow", "f", true, "keep following the file for new records")
	tailCmd.Flags().StringVarP(&tailOutput, "output", "o", "text", "output format: text, json")

	rootCmd.AddCommand(tailCmd)
}

func runTail(cmd *cobra.Command, args []string) error {
	pattern := defaultLogFile
	if len(args) == 1 {
		pattern = args[0]
	}
	path, err := resolveLogFile(pattern)
	if err != nil {
		return err
	}

	filter := query.Filter{
		Level:   tailLevel,
		Section: tailSection,
		Group:   tailGroup,
		RunName: tailRunName,
		RunID:   tailRunID,
	}
	if tailSince > 0 {
		filter.Since = time.Duration(tailSince) * time.Second
	}

	var renderer output.Renderer
	switch strings.ToLower(tailOutput) {
	case "json":
		renderer = output.NewJSONRenderer()
	default:
		renderer = output.NewTextRenderer()
	}

	log := logging.New(verbose)
	defer log.Sync()

	if !tailFollow {
		return tailOnce(path, filter, renderer)
	}

	idx := index.New()
	h := hub.New(0, log.Named("hub"))

	// Subscribe before ingestion starts so every record reaches us.
	sub := h.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
		h.Close()
	}()

	var wake <-chan struct{}
	if w, werr := watcher.New(path, log.Named("watcher")); werr == nil {
		go w.Start(ctx)
		wake = w.Wake()
	}

	pipe := pipeline.New(pipeline.Config{
		Path:     path,
		Tailer:   tailer.New(path, 0),
		Index:    idx,
		Hub:      h,
		Interval: pipeline.DefaultInterval,
		Wake:     wake,
		Logger:   log.Named("pipeline"),
	})
	go pipe.Run(ctx)

	for rec := range sub.C() {
		if !filter.Matches(rec, time.Now()) {
			continue
		}
		if err := renderer.Render(rec); err != nil {
			log.Warn("render failed", zap.Error(err))
		}
	}

	return nil
}

// tailOnce reads the file's current content in a single poll, renders the
// matching records and returns.
func tailOnce(path string, filter query.Filter, renderer output.Renderer) error {
	lines, _, err := tailer.New(path, 0).Poll()
	if err != nil {
		return err
	}

	now := time.Now()
	var seq uint64
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		seq++
		rec := parser.Parse(line, seq)
		if !filter.Matches(rec, now) {
			continue
		}
		if err := renderer.Render(rec); err != nil {
			return err
		}
	}
	return nil
}
