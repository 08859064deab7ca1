// Package record writes a zstd-compressed, newline-delimited JSON
// recording of dispatched calls and state-dump runs, used by the demo
// CLI's record subcommand.
package record

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Entry is one recorded dispatch or state-dump event.
type Entry struct {
	Kind      string    `json:"kind"` // "call", "statedump_begin", "statedump_end"
	Event     string    `json:"event"`
	Key       uint64    `json:"key"`
	Timestamp time.Time `json:"timestamp"`
}

// Writer appends Entry records to an underlying zstd-compressed
// stream, one JSON object per line. The encoder is constructed once
// and reused for the life of the stream.
type Writer struct {
	enc *zstd.Encoder
	buf *bufio.Writer
}

// NewWriter wraps w with a zstd encoder at the default speed/ratio
// tradeoff and a buffered JSON-lines writer; buffered lines reach the
// encoder when the buffer fills or on Close.
func NewWriter(w io.Writer) (*Writer, error) {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}

	return &Writer{enc: enc, buf: bufio.NewWriter(enc)}, nil
}

// Write appends one entry as a JSON line.
func (w *Writer) Write(e Entry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshaling record entry: %w", err)
	}

	if _, err := w.buf.Write(b); err != nil {
		return fmt.Errorf("writing record entry: %w", err)
	}

	return w.buf.WriteByte('\n')
}

// Close flushes the line buffer and the zstd stream.
func (w *Writer) Close() error {
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("flushing record buffer: %w", err)
	}

	return w.enc.Close()
}

// Reader reads back a recording produced by Writer.
type Reader struct {
	dec *zstd.Decoder
	sc  *bufio.Scanner
}

// NewReader wraps r with a zstd decoder and a line scanner.
func NewReader(r io.Reader) (*Reader, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}

	return &Reader{dec: dec, sc: bufio.NewScanner(dec)}, nil
}

// Next reads the next entry, returning io.EOF once the stream is
// exhausted.
func (r *Reader) Next() (Entry, error) {
	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return Entry{}, fmt.Errorf("scanning record stream: %w", err)
		}

		return Entry{}, io.EOF
	}

	var e Entry
	if err := json.Unmarshal(r.sc.Bytes(), &e); err != nil {
		return Entry{}, fmt.Errorf("unmarshaling record entry: %w", err)
	}

	return e, nil
}

// Close releases the decoder's resources.
func (r *Reader) Close() error {
	r.dec.Close()
	return nil
}
