package host

import (
	"bufio"
	"io"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/wharflab/tscheck/internal/worker"
)

// frameKind tags a frame on the parent/child pipe.
type frameKind uint8

const (
	frameData frameKind = iota + 1
	frameOnline
	frameMessage
	frameError
)

// frame is the unit exchanged with a child worker. The parent sends one data
// frame on stdin; the child answers with online, message and error frames on
// stdout. Frames are consecutive msgpack values.
type frame struct {
	Kind    frameKind       `msgpack:"k"`
	Data    *worker.Data    `msgpack:"d,omitempty"`
	Message *worker.Message `msgpack:"m,omitempty"`
	Error   string          `msgpack:"e,omitempty"`
}

// frameWriter serializes frames and flushes each one so the reader sees it
// immediately.
type frameWriter struct {
	mu  sync.Mutex
	buf *bufio.Writer
	enc *msgpack.Encoder
}

func newFrameWriter(w io.Writer) *frameWriter {
	buf := bufio.NewWriter(w)
	return &frameWriter{buf: buf, enc: msgpack.NewEncoder(buf)}
}

func (fw *frameWriter) write(f frame) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if err := fw.enc.Encode(&f); err != nil {
		return err
	}
	return fw.buf.Flush()
}

type frameReader struct {
	dec *msgpack.Decoder
}

func newFrameReader(r io.Reader) *frameReader {
	return &frameReader{dec: msgpack.NewDecoder(bufio.NewReader(r))}
}

func (fr *frameReader) read() (frame, error) {
	var f frame
	err := fr.dec.Decode(&f)
	return f, err
}
