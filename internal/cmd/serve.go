package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/atikulmunna/logboard/internal/hub"
	"github.com/atikulmunna/logboard/internal/index"
	"github.com/atikulmunna/logboard/internal/logging"
	"github.com/atikulmunna/logboard/internal/pipeline"
	"github.com/atikulmunna/logboard/internal/query"
	"github.com/atikulmunna/logboard/internal/server"
	"github.com/atikulmunna/logboard/internal/tailer"
	"github.com/atikulmunna/logboard/internal/watcher"
)

const defaultLogFile = "logs/app.log"

var serveCmd = &cobra.Command{
	Use:   "serve [logfile]",
	Short: "Serve the web dashboard for a JSON-Lines log file",
	Long: `Serve starts the Logboard web dashboard: a filterable, paginated
view of the log plus a live stream of new records over WebSocket.

The log file does not need to exist yet; Logboard keeps polling and picks
it up once it appears. The argument may be a glob pattern, in which case
the most recently modified match is watched.

Examples:
  logboard serve logs/app.log
  logboard serve "runs/**/*.jsonl" --port 9000
  logboard serve --resume`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("host", "127.0.0.1", "host to bind to")
	serveCmd.Flags().Int("port", 8000, "port to listen on")
	serveCmd.Flags().Duration("poll-interval", pipeline.DefaultInterval, "log file poll interval")
	serveCmd.Flags().Int("buffer", hub.DefaultBuffer, "per-subscriber channel capacity")
	serveCmd.Flags().Bool("resume", false, "resume from the checkpointed file offset")

	_ = viper.BindPFlag("host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("poll_interval", serveCmd.Flags().Lookup("poll-interval"))
	_ = viper.BindPFlag("buffer", serveCmd.Flags().Lookup("buffer"))
	_ = viper.BindPFlag("resume", serveCmd.Flags().Lookup("resume"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	pattern := defaultLogFile
	if len(args) == 1 {
		pattern = args[0]
	}
	path, err := resolveLogFile(pattern)
	if err != nil {
		return err
	}

	log := logging.New(verbose)
	defer log.Sync()
	log.Info("watching log file", zap.String("path", path))

	idx := index.New()
	h := hub.New(viper.GetInt("buffer"), log.Named("hub"))

	var ckpt *tailer.Checkpoint
	var offset int64
	if viper.GetBool("resume") {
		ckpt, err = tailer.NewCheckpoint(".logboard-state.json")
		if err != nil {
			return fmt.Errorf("load checkpoint: %w", err)
		}
		if saved, ok := ckpt.Get(path); ok {
			offset = saved
			log.Info("resuming from checkpoint", zap.Int64("offset", offset))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutting down")
		cancel()
	}()

	// The watcher only accelerates polling; without it the pipeline still
	// picks everything up on its tick.
	var wake <-chan struct{}
	if w, werr := watcher.New(path, log.Named("watcher")); werr != nil {
		log.Warn("filesystem notifications unavailable, falling back to plain polling",
			zap.Error(werr))
	} else {
		go w.Start(ctx)
		wake = w.Wake()
	}

	pipe := pipeline.New(pipeline.Config{
		Path:       path,
		Tailer:     tailer.New(path, offset),
		Index:      idx,
		Hub:        h,
		Interval:   viper.GetDuration("poll_interval"),
		Wake:       wake,
		Checkpoint: ckpt,
		Logger:     log.Named("pipeline"),
	})
	go pipe.Run(ctx)
	defer h.Close()

	srv := server.New(server.Config{
		Index:  idx,
		Query:  query.New(idx),
		Hub:    h,
		LogDir: filepath.Dir(path),
		Addr:   fmt.Sprintf("%s:%d", viper.GetString("host"), viper.GetInt("port")),
		Logger: log.Named("server"),
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case <-ctx.Done():
		// Give the pipeline a beat to persist its checkpoint.
		time.Sleep(100 * time.Millisecond)
		return nil
	case err := <-errCh:
		return err
	}
}
