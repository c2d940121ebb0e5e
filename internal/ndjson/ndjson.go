// Package ndjson reads and writes newline-delimited JSON streams.
package ndjson

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"sync"
)

// Reader reads one JSON document per line from an underlying stream.
// It uses a bufio.Reader rather than a Scanner so lines are not subject
// to a fixed token size limit.
type Reader struct {
	br *bufio.Reader
}

// NewReader wraps r for line-by-line reading.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReader(r)}
}

// ReadLine returns the next non-empty line with the trailing newline
// stripped. It returns io.EOF when the stream is exhausted. A final
// unterminated line is returned before EOF.
func (r *Reader) ReadLine() ([]byte, error) {
	for {
		line, err := r.br.ReadBytes('\n')
		if len(line) > 0 {
			line = bytes.TrimRight(line, "\r\n")
			if len(bytes.TrimSpace(line)) == 0 {
				if err != nil {
					return nil, err
				}
				continue
			}
			return line, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// Writer writes one JSON document per line. Writes are serialized so a
// Writer may be shared across goroutines.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter wraps w for line-by-line writing.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteRaw writes an already-serialized JSON document followed by a newline.
func (w *Writer) WriteRaw(line []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.w.Write(line); err != nil {
		return err
	}
	_, err := w.w.Write([]byte{'\n'})
	return err
}

// Write marshals v and writes it as a single line.
func (w *Writer) Write(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return w.WriteRaw(data)
}
