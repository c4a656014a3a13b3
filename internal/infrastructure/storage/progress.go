package storage

import (
	"io"
	"sync"
)

// ProgressReader reports the share of size read so far, as a percentage
type ProgressReader struct {
	r        io.Reader
	size     int64
	read     int64
	report   func(percent float64)
	mu       sync.Mutex
	lastSent float64
}

// NewProgressReader wraps r. A non-positive size reports 100 only on EOF.
func NewProgressReader(r io.Reader, size int64, report func(percent float64)) *ProgressReader {
	return &ProgressReader{r: r, size: size, report: report, lastSent: -1}
}

func (p *ProgressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)

	p.mu.Lock()
	p.read += int64(n)
	var percent float64
	switch {
	case err == io.EOF:
		percent = 100
	case p.size > 0:
		percent = min(float64(p.read)*100/float64(p.size), 100)
	default:
		percent = 0
	}
	send := p.report != nil && percent != p.lastSent
	if send {
		p.lastSent = percent
	}
	p.mu.Unlock()

	if send {
		p.report(percent)
	}
	return n, err
}

// BytesRead returns the number of bytes consumed
func (p *ProgressReader) BytesRead() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.read
}

// Complete reports 100 if it has not been reported yet. Uploaders that stop
// at the declared size without observing EOF call it after success.
func (p *ProgressReader) Complete() {
	p.mu.Lock()
	send := p.report != nil && p.lastSent != 100
	p.lastSent = 100
	p.mu.Unlock()
	if send {
		p.report(100)
	}
}
