package process

import (
	"io"
	"sync"

	"github.com/armon/circbuf"
)

// TailBuffer keeps the last N bytes written to it. It is safe for concurrent
// use, and an optional passthrough writer sees every byte.
type TailBuffer struct {
	mu  sync.Mutex
	buf *circbuf.Buffer
	tee io.Writer
}

// NewTailBuffer returns a TailBuffer holding up to limit bytes. A
// non-positive limit keeps nothing.
func NewTailBuffer(limit int) *TailBuffer {
	if limit <= 0 {
		return &TailBuffer{}
	}
	b, err := circbuf.NewBuffer(int64(limit))
	if err != nil {
		return &TailBuffer{}
	}
	return &TailBuffer{buf: b}
}

func (b *TailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if n == 0 {
		return 0, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tee != nil {
		_, _ = b.tee.Write(p)
	}
	if b.buf == nil {
		return n, nil
	}
	return b.buf.Write(p)
}

func (b *TailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.buf == nil {
		return ""
	}
	return b.buf.String()
}
