package mcpclient

import "sync"

// stderrCap bounds how much child stderr is retained. The classifier only
// ever needs the tail, where the final error lives.
const stderrCap = 256 * 1024

// tailBuffer is a concurrency-safe io.Writer that keeps the last N bytes
// written. The child process writes from the transport's copy goroutine
// while the probe reads, so all access is locked.
type tailBuffer struct {
	mu  sync.Mutex
	cap int
	buf []byte
}

func newTailBuffer(capacity int) *tailBuffer {
	return &tailBuffer{cap: capacity}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(p) >= b.cap {
		b.buf = append(b.buf[:0], p[len(p)-b.cap:]...)
		return len(p), nil
	}
	b.buf = append(b.buf, p...)
	if overflow := len(b.buf) - b.cap; overflow > 0 {
		b.buf = append(b.buf[:0], b.buf[overflow:]...)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
