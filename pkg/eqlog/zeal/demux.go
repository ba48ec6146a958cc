package zeal

import (
	"fmt"
)

// DefaultBufferSize is the largest single message the Demuxer accepts.
const DefaultBufferSize = 64 * 1024

// Demuxer splits a stream of back-to-back JSON objects ("}{" boundaries,
// optionally separated by whitespace) into complete objects. A trailing
// partial object is kept until a later Feed completes it.
//
// The buffer is allocated once; an object that outgrows it is discarded
// and reported as ErrMessageTooLarge.
type Demuxer struct {
	buf []byte

	depth      int
	inString   bool
	escaped    bool
	discarding bool
}

// NewDemuxer returns a Demuxer holding at most size bytes of one message.
// A size <= 0 selects DefaultBufferSize.
func NewDemuxer(size int) *Demuxer {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Demuxer{buf: make([]byte, 0, size)}
}

// Feed consumes chunk and returns every object it completed, in order.
// The returned error wraps ErrMessageTooLarge when an object was dropped;
// objects after the dropped one are still returned.
func (d *Demuxer) Feed(chunk []byte) ([]string, error) {
	var (
		out     []string
		dropped int
	)
	for _, c := range chunk {
		if d.depth == 0 {
			if c != '{' {
				continue
			}
			d.buf = d.buf[:0]
			d.discarding = false
		}

		if !d.discarding {
			if len(d.buf) == cap(d.buf) {
				d.discarding = true
				d.buf = d.buf[:0]
				dropped++
			} else {
				d.buf = append(d.buf, c)
			}
		}

		switch {
		case d.escaped:
			d.escaped = false
		case d.inString:
			switch c {
			case '\\':
				d.escaped = true
			case '"':
				d.inString = false
			}
		case c == '"':
			d.inString = true
		case c == '{':
			d.depth++
		case c == '}':
			d.depth--
			if d.depth == 0 && !d.discarding {
				out = append(out, string(d.buf))
				d.buf = d.buf[:0]
			}
		}
	}

	if dropped > 0 {
		return out, fmt.Errorf("%w: %d message(s) over %d bytes", ErrMessageTooLarge, dropped, cap(d.buf))
	}
	return out, nil
}

// Pending returns the number of buffered bytes of an incomplete object.
func (d *Demuxer) Pending() int {
	if d.depth == 0 || d.discarding {
		return 0
	}
	return len(d.buf)
}

// Reset drops any partial object.
func (d *Demuxer) Reset() {
	d.buf = d.buf[:0]
	d.depth = 0
	d.inString = false
	d.escaped = false
	d.discarding = false
}
