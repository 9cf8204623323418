package tailer

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// Tailer incrementally reads complete lines appended to a single file.
//
// It is a pure offset machine: Poll reads whatever bytes exist past the
// current offset and returns the complete lines found. Scheduling (when to
// poll) belongs to the caller. Tailer is not safe for concurrent use; the
// ingestion pipeline is its single owner.
type Tailer struct {
	path    string
	offset  int64
	partial []byte // unterminated tail of the previous read
}

// New creates a Tailer for path starting at the given byte offset. Offset 0
// reads the file from the beginning; a saved checkpoint offset resumes past
// already-seen content.
func New(path string, offset int64) *Tailer {
	return &Tailer{path: path, offset: offset}
}

// Offset returns the byte offset of the first unconsumed complete line.
// Bytes of a held partial fragment are not counted: a Tailer resumed at
// this offset re-reads the fragment and emits the finished line whole.
func (t *Tailer) Offset() int64 {
	return t.offset - int64(len(t.partial))
}

// Poll reads all bytes appended since the last poll and splits them into
// complete lines. A trailing fragment with no terminator yet is held back
// and prefixed to the next read, so a half-written line is never emitted.
//
// If the file has shrunk below the tracked offset (truncation or rotation),
// reset is true, the offset restarts from zero and the shrunken file's
// current content is returned in the same call. A missing file is not an
// error: Poll returns no lines and the caller keeps polling.
func (t *Tailer) Poll() (lines []string, reset bool, err error) {
	info, err := os.Stat(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("stat %s: %w", t.path, err)
	}

	if info.Size() < t.offset {
		t.offset = 0
		t.partial = nil
		reset = true
	}
	if info.Size() == t.offset {
		return nil, reset, nil
	}

	f, err := os.Open(t.path)
	if err != nil {
		return nil, reset, fmt.Errorf("open %s: %w", t.path, err)
	}
	defer f.Close()

	if _, err := f.Seek(t.offset, io.SeekStart); err != nil {
		return nil, reset, fmt.Errorf("seek %s: %w", t.path, err)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, reset, fmt.Errorf("read %s: %w", t.path, err)
	}
	t.offset += int64(len(data))

	buf := append(t.partial, data...)
	t.partial = nil

	for {
		i := bytes.IndexByte(buf, '\n')
		if i < 0 {
			break
		}
		line := buf[:i]
		buf = buf[i+1:]
		line = bytes.TrimSuffix(line, []byte{'\r'})
		lines = append(lines, string(line))
	}
	if len(buf) > 0 {
		t.partial = append([]byte(nil), buf...)
	}

	return lines, reset, nil
}
