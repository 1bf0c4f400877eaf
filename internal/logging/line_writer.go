package logging

import (
	"bytes"
	"strings"
	"sync"
)

// maxLineBytes caps a buffered partial line so a child that never writes a
// newline cannot grow memory without bound.
const maxLineBytes = 64 * 1024

// LineWriter is an io.Writer that splits its input into lines and hands each
// complete line to emit. The last keep lines are retained for error reports.
// Safe for concurrent use.
type LineWriter struct {
	mu      sync.Mutex
	emit    func(line string)
	partial []byte
	tail    []string
	keep    int
}

// NewLineWriter returns a LineWriter. emit may be nil when only the tail is wanted.
func NewLineWriter(emit func(line string), keep int) *LineWriter {
	return &LineWriter{emit: emit, keep: keep}
}

// Write implements io.Writer. It never returns an error.
func (w *LineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.partial = append(w.partial, p...)
	for {
		i := bytes.IndexByte(w.partial, '\n')
		if i < 0 {
			break
		}
		w.line(string(w.partial[:i]))
		w.partial = w.partial[i+1:]
	}

	if len(w.partial) > maxLineBytes {
		w.line(string(w.partial))
		w.partial = nil
	}
	return len(p), nil
}

// Flush emits any buffered partial line. Call it once the producer has exited.
func (w *LineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.partial) > 0 {
		w.line(string(w.partial))
		w.partial = nil
	}
}

// Tail returns a copy of the most recent lines, oldest first.
func (w *LineWriter) Tail() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.tail))
	copy(out, w.tail)
	return out
}

func (w *LineWriter) line(s string) {
	s = strings.TrimRight(s, "\r")
	if strings.TrimSpace(s) == "" {
		return
	}
	if w.emit != nil {
		w.emit(s)
	}
	if w.keep <= 0 {
		return
	}
	w.tail = append(w.tail, s)
	if len(w.tail) > w.keep {
		w.tail = w.tail[len(w.tail)-w.keep:]
	}
}
