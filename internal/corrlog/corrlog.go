// Package corrlog implements the rolling, per-mountpoint correction log
// of spec.md §6: one text block per epoch per artifact kind, rolled on
// a configurable interval and gzip-compressed on rollover.
//
// The writer/reader pair follows the teacher's RINEX clock decoder's
// bufio.Scanner/line-oriented shape (pkg/rinex/clockdecoder.go), and
// rollover compression is grounded on pkg/rinex's own (commented-out)
// compression helpers: archiver.CompressFile(src, src+".gz") followed
// by removing the uncompressed source.
package corrlog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mholt/archiver/v3"
)

// blockKind names the self-delimiting block types a Writer emits.
type blockKind string

const (
	kindOrbit     blockKind = "ORBIT"
	kindClock     blockKind = "CLOCK"
	kindCodeBias  blockKind = "CBIAS"
	kindPhaseBias blockKind = "PBIAS"
	kindVtec      blockKind = "VTEC"
)

// Block is one self-delimited record read back from the log: a header
// line's fields plus the body lines between it and the terminating
// blank line.
type Block struct {
	Kind     string
	StaID    string
	Week     int
	Seconds  float64
	Lines    []string
}

// FileName builds the roll-boundary filename spec.md §6 describes:
// year, day-of-year, hour-minute, and an "_ION.ssr" suffix for streams
// whose identifier contains "ION", else "_MC.ssr".
func FileName(staId string, t time.Time) string {
	suffix := "_MC.ssr"
	if strings.Contains(staId, "ION") {
		suffix = "_ION.ssr"
	}
	return fmt.Sprintf("%s%04d%03d%02d%02d%s",
		staId, t.Year(), t.YearDay(), t.Hour(), t.Minute(), suffix)
}

// Writer appends correction blocks to a rolling set of files under Dir.
// It is not safe for concurrent use.
type Writer struct {
	Dir      string
	StaID    string
	Interval time.Duration

	f           *os.File
	w           *bufio.Writer
	rollBoundary time.Time
	path        string
}

// NewWriter returns a Writer that rolls onto a new file every interval,
// under dir, for the stream identified by staId.
func NewWriter(dir, staId string, interval time.Duration) *Writer {
	return &Writer{Dir: dir, StaID: staId, Interval: interval}
}

// ensureOpen opens (or rolls onto) the file covering now.
func (w *Writer) ensureOpen(now time.Time) error {
	if w.f != nil && now.Before(w.rollBoundary) {
		return nil
	}
	if w.f != nil {
		if err := w.roll(); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return fmt.Errorf("corrlog: mkdir %s: %w", w.Dir, err)
	}

	w.path = filepath.Join(w.Dir, FileName(w.StaID, now))
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("corrlog: open %s: %w", w.path, err)
	}
	w.f = f
	w.w = bufio.NewWriter(f)
	w.rollBoundary = now.Add(w.Interval)
	return nil
}

// roll closes the current file and gzip-compresses it, matching the
// teacher's Compress() pattern: compress then remove the source.
func (w *Writer) roll() error {
	if err := w.w.Flush(); err != nil {
		return err
	}
	if err := w.f.Close(); err != nil {
		return err
	}
	path := w.path
	w.f = nil
	w.w = nil

	if err := archiver.CompressFile(path, path+".gz"); err != nil {
		return fmt.Errorf("corrlog: compress %s: %w", path, err)
	}
	return os.Remove(path)
}

// Close flushes and rolls the current file, compressing it like any
// other rollover.
func (w *Writer) Close() error {
	if w.f == nil {
		return nil
	}
	return w.roll()
}

// writeBlock emits one self-delimited block: a header line naming the
// kind, station, GNSS week/seconds-of-week and line count, the body
// lines verbatim, and a trailing blank line.
func (w *Writer) writeBlock(now time.Time, kind blockKind, week int, seconds float64, lines []string) error {
	if err := w.ensureOpen(now); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w.w, "> %s %s %d %.3f %d\n", kind, w.StaID, week, seconds, len(lines)); err != nil {
		return err
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w.w, line); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w.w); err != nil {
		return err
	}
	return w.w.Flush()
}

// Reader parses a corrlog file back into Blocks, bufio.Scanner-driven
// in the same style as pkg/rinex's decoders.
type Reader struct {
	sc  *bufio.Scanner
	err error
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{sc: bufio.NewScanner(r)}
}

// ReadBlock returns the next block, or io.EOF once the input is
// exhausted.
func (r *Reader) ReadBlock() (Block, error) {
	if r.err != nil {
		return Block{}, r.err
	}

	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			r.err = err
			return Block{}, err
		}
		r.err = io.EOF
		return Block{}, io.EOF
	}

	header := r.sc.Text()
	var kind, staId string
	var week, n int
	var seconds float64
	if _, err := fmt.Sscanf(header, "> %s %s %d %f %d", &kind, &staId, &week, &seconds, &n); err != nil {
		return Block{}, fmt.Errorf("corrlog: malformed header %q: %w", header, err)
	}

	lines := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if !r.sc.Scan() {
			return Block{}, fmt.Errorf("corrlog: truncated block, wanted %d lines, got %d", n, i)
		}
		lines = append(lines, r.sc.Text())
	}

	// consume the trailing blank line
	r.sc.Scan()

	return Block{Kind: kind, StaID: staId, Week: week, Seconds: seconds, Lines: lines}, nil
}
