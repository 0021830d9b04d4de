package nodelog

import (
	"bufio"
	"bytes"
	"io"
	"sync"
)

// lineWriter buffers writes and flushes the underlying writer whenever a newline is written.
type lineWriter struct {
	mu  sync.Mutex
	buf *bufio.Writer
	dst io.Writer
}

func newLineWriter(w io.Writer) *lineWriter {
	if lw, ok := w.(*lineWriter); ok {
		return lw
	}
	return &lineWriter{buf: bufio.NewWriter(w), dst: w}
}

// Write implements io.Writer.
func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, err := w.buf.Write(p)
	if err != nil {
		return n, err
	}
	if bytes.IndexByte(p, '\n') >= 0 {
		return n, w.buf.Flush()
	}
	return n, nil
}

// Flush writes any buffered partial line.
func (w *lineWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Flush()
}
