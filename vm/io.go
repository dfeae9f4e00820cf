package vm

import (
	"bufio"
	"io"
)

// ---------------------------------------------------------------------------
// I/O abstractions for `,` and `.`
// ---------------------------------------------------------------------------

// EOFSentinel is the cell value a ReaderSource yields once its underlying
// reader is exhausted, matching the classic interpreter's getchar cast.
const EOFSentinel int8 = -1

// InputSource supplies one cell value per `,` instruction. Reads block
// until a byte is available; end-of-input is the source's responsibility to
// encode as a sentinel value.
type InputSource interface {
	ReadCell() int8
}

// OutputSink consumes one cell value per `.` instruction. Buffering and
// error discipline are the sink's own concern; the machine has no failure
// mode for output.
type OutputSink interface {
	WriteCell(v int8)
}

// ReaderSource adapts an io.Reader into an InputSource. After the first
// read failure (EOF included) every subsequent read yields Sentinel.
type ReaderSource struct {
	r        *bufio.Reader
	Sentinel int8
	done     bool
}

// NewReaderSource wraps r with the default EOF sentinel.
func NewReaderSource(r io.Reader) *ReaderSource {
	return &ReaderSource{r: bufio.NewReader(r), Sentinel: EOFSentinel}
}

func (s *ReaderSource) ReadCell() int8 {
	if s.done {
		return s.Sentinel
	}
	b, err := s.r.ReadByte()
	if err != nil {
		s.done = true
		return s.Sentinel
	}
	return int8(b)
}

// WriterSink adapts an io.Writer into an OutputSink. Writes are buffered;
// the first underlying error is retained and surfaced by Flush.
type WriterSink struct {
	w   *bufio.Writer
	err error
}

// NewWriterSink wraps w in a buffered sink. Call Flush when the session
// ends to drain the buffer and observe any write error.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: bufio.NewWriter(w)}
}

func (s *WriterSink) WriteCell(v int8) {
	if s.err != nil {
		return
	}
	s.err = s.w.WriteByte(byte(v))
}

// Flush drains the buffer and returns the first error seen on any write.
func (s *WriterSink) Flush() error {
	if s.err != nil {
		return s.err
	}
	return s.w.Flush()
}
