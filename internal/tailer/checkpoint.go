package tailer

import (
	"encoding/json"
	"os"
	"sync"
)

// checkpointData is the on-disk JSON structure for the persisted offset.
type checkpointData struct {
	Path   string `json:"path"`
	Offset int64  `json:"offset"`
}

// Checkpoint persists the read offset for one watched file so a restart can
// resume past content it has already seen. A resumed session's index holds
// only records ingested after the resume point.
type Checkpoint struct {
	mu   sync.Mutex
	file string
	data checkpointData
}

// NewCheckpoint creates or loads a checkpoint file at the given path.
func NewCheckpoint(file string) (*Checkpoint, error) {
	c := &Checkpoint{file: file}

	raw, err := os.ReadFile(file)
	if err == nil {
		_ = json.Unmarshal(raw, &c.data)
	}
	return c, nil
}

// Get returns the saved offset if the checkpoint was recorded for path.
func (c *Checkpoint) Get(path string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data.Path != path {
		return 0, false
	}
	return c.data.Offset, true
}

// Set records the current offset for path.
func (c *Checkpoint) Set(path string, offset int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = checkpointData{Path: path, Offset: offset}
}

// Save writes the checkpoint to disk atomically.
func (c *Checkpoint) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := json.MarshalIndent(c.data, "", "  ")
	if err != nil {
		return err
	}

	// Write to a temp file first, then rename for atomicity.
	tmp := c.file + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, c.file)
}
