// Package logreader reads EverQuest log files line by line with a fixed-size,
// reused buffer.
//
// Log files are written in Windows-1252; lines containing non-ASCII bytes are
// decoded to UTF-8. Lines longer than the buffer are skipped whole.
package logreader

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/eqlog/eqlog-go/internal/timestamp"
)

// DefaultBufferSize bounds the longest line that is returned.
const DefaultBufferSize = 16 * 1024

// Options configures a Scanner.
type Options struct {
	// BufferSize is the fixed read buffer size. 0 uses DefaultBufferSize.
	BufferSize int

	// Since seeks close to the first line at or after this time using a binary
	// search over the file. Earlier lines may still be returned; callers filter.
	Since time.Time

	// Logger receives debug records for skipped lines. Nil disables logging.
	Logger *slog.Logger
}

// Scanner iterates over the lines of a log file.
type Scanner struct {
	f       *os.File
	br      *bufio.Reader
	dec     *encoding.Decoder
	logger  *slog.Logger
	line    string
	err     error
	skipped int
}

// Open opens path for scanning.
func Open(path string, opts Options) (*Scanner, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	size := opts.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if !opts.Since.IsZero() {
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, err
		}
		off, err := SeekTime(f, info.Size(), opts.Since)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("seeking to %v: %w", opts.Since, err)
		}
		if _, err := f.Seek(off, io.SeekStart); err != nil {
			f.Close()
			return nil, err
		}
		logger.Debug("seeked log file", "path", path, "offset", off)
	}

	return &Scanner{
		f:      f,
		br:     bufio.NewReaderSize(f, size),
		dec:    charmap.Windows1252.NewDecoder(),
		logger: logger,
	}, nil
}

// Scan advances to the next line. It returns false at end of file or on error.
func (s *Scanner) Scan() bool {
	if s.err != nil {
		return false
	}
	for {
		raw, err := s.br.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			s.skipOverlong()
			if s.err != nil {
				return false
			}
			continue
		}
		if err != nil && !errors.Is(err, io.EOF) {
			s.err = err
			return false
		}
		if len(raw) == 0 && err != nil {
			return false
		}

		raw = trimEOL(raw)
		s.line = s.decode(raw)
		if err != nil {
			// last line without newline; the next call reports EOF
			s.err = io.EOF
		}
		return true
	}
}

// Text returns the current line. The string is valid after the next Scan.
func (s *Scanner) Text() string { return s.line }

// Err returns the first non-EOF error.
func (s *Scanner) Err() error {
	if errors.Is(s.err, io.EOF) {
		return nil
	}
	return s.err
}

// Skipped returns how many overlong lines were dropped.
func (s *Scanner) Skipped() int { return s.skipped }

// Close closes the underlying file.
func (s *Scanner) Close() error { return s.f.Close() }

func (s *Scanner) skipOverlong() {
	for {
		_, err := s.br.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		s.skipped++
		s.logger.Debug("skipping overlong line", "buffer_size", s.br.Size())
		if err != nil {
			s.err = err
		}
		return
	}
}

// DecodeString converts a Windows-1252 line to UTF-8. ASCII lines are
// returned unchanged.
func DecodeString(line string) string {
	for i := 0; i < len(line); i++ {
		if line[i] >= 0x80 {
			out, err := charmap.Windows1252.NewDecoder().String(line)
			if err != nil {
				return line
			}
			return out
		}
	}
	return line
}

func (s *Scanner) decode(raw []byte) string {
	for _, c := range raw {
		if c >= 0x80 {
			out, err := s.dec.Bytes(raw)
			if err != nil {
				return string(raw)
			}
			return string(out)
		}
	}
	return string(raw)
}

func trimEOL(b []byte) []byte {
	if n := len(b); n > 0 && b[n-1] == '\n' {
		b = b[:n-1]
	}
	if n := len(b); n > 0 && b[n-1] == '\r' {
		b = b[:n-1]
	}
	return b
}

// sampleSize is how many bytes SeekTime reads at each bisection step.
const sampleSize = 512

// SeekTime binary-searches a log for the offset of a line start whose
// timestamp is before since and as late as possible. The returned offset is
// always the start of a line (or 0).
func SeekTime(r io.ReaderAt, size int64, since time.Time) (int64, error) {
	lo, hi := int64(0), size
	buf := make([]byte, sampleSize)

	for hi-lo > sampleSize {
		mid := lo + (hi-lo)/2
		n, err := r.ReadAt(buf, mid)
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, err
		}

		chunk := buf[:n]
		nl := -1
		for i, c := range chunk {
			if c == '\n' {
				nl = i
				break
			}
		}
		if nl < 0 {
			hi = mid
			continue
		}
		start := mid + int64(nl) + 1
		ts, ok := timestamp.Extract(string(chunk[nl+1:]))
		if !ok || start >= hi {
			hi = mid
			continue
		}
		if ts.Before(since) {
			lo = start
		} else {
			hi = mid
		}
	}
	return lo, nil
}
