package logsink

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Writer appends one line per call to an underlying writer.
type Writer struct {
	mu  sync.Mutex
	out io.Writer
	c   io.Closer
}

func New(out io.Writer) *Writer {
	return &Writer{out: out}
}

// OpenFile opens path in append mode, creating it when missing.
func OpenFile(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open rates log %q: %w", path, err)
	}
	return &Writer{out: f, c: f}, nil
}

func (w *Writer) Append(line string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := io.WriteString(w.out, line+"\n"); err != nil {
		return fmt.Errorf("failed to append rates log line: %w", err)
	}
	return nil
}

func (w *Writer) Close() error {
	if w.c == nil {
		return nil
	}
	return w.c.Close()
}
