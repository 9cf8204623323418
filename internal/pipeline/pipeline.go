package pipeline

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/atikulmunna/logboard/internal/hub"
	"github.com/atikulmunna/logboard/internal/index"
	"github.com/atikulmunna/logboard/internal/parser"
	"github.com/atikulmunna/logboard/internal/tailer"
)

// DefaultInterval is the poll cadence when none is configured.
const DefaultInterval = 500 * time.Millisecond

// checkpointEvery is how often the offset checkpoint is persisted when
// resume is enabled.
const checkpointEvery = 5 * time.Second

// Pipeline is the single writer of the index: per complete line it runs
// poll → parse → index.Append → hub.Publish as one serialized step, so no
// record is ever broadcast before it is queryable. No ingestion fault
// terminates the loop; read errors are logged and retried on the next tick.
type Pipeline struct {
	tail     *tailer.Tailer
	idx      *index.Index
	hub      *hub.Hub
	interval time.Duration
	wake     <-chan struct{} // optional watcher acceleration
	ckpt     *tailer.Checkpoint
	path     string
	seq      uint64
	session  uint64
	log      *zap.Logger
}

// Config carries the pipeline's collaborators and tuning.
type Config struct {
	Path       string
	Tailer     *tailer.Tailer
	Index      *index.Index
	Hub        *hub.Hub
	Interval   time.Duration
	Wake       <-chan struct{}    // may be nil
	Checkpoint *tailer.Checkpoint // may be nil
	Logger     *zap.Logger
}

// New creates a Pipeline.
func New(cfg Config) *Pipeline {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Pipeline{
		tail:     cfg.Tailer,
		idx:      cfg.Index,
		hub:      cfg.Hub,
		interval: interval,
		wake:     cfg.Wake,
		ckpt:     cfg.Checkpoint,
		path:     cfg.Path,
		log:      cfg.Logger,
	}
}

// Run polls until the context is cancelled. An immediate first poll picks up
// existing file content before the first tick.
func (p *Pipeline) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var save <-chan time.Time
	if p.ckpt != nil {
		saveTicker := time.NewTicker(checkpointEvery)
		defer saveTicker.Stop()
		save = saveTicker.C
	}

	p.step()

	for {
		select {
		case <-ctx.Done():
			p.saveCheckpoint()
			return
		case <-ticker.C:
			p.step()
		case <-p.wake:
			p.step()
		case <-save:
			p.saveCheckpoint()
		}
	}
}

// step runs one poll-detect-parse-publish cycle.
func (p *Pipeline) step() {
	lines, reset, err := p.tail.Poll()
	if err != nil {
		p.log.Warn("poll failed", zap.Error(err))
		return
	}
	if reset {
		p.log.Info("file truncated, resyncing from start",
			zap.String("path", p.path))
		p.idx.Reset()
		p.seq = 0
		p.session++
	}

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		p.seq++
		rec := parser.Parse(line, p.seq)
		rec.Session = p.session
		p.idx.Append(rec)
		p.hub.Publish(rec)
	}
}

func (p *Pipeline) saveCheckpoint() {
	if p.ckpt == nil {
		return
	}
	p.ckpt.Set(p.path, p.tail.Offset())
	if err := p.ckpt.Save(); err != nil {
		p.log.Warn("checkpoint save failed", zap.Error(err))
	}
}
