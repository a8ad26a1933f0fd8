// Package storage pushes completed downloads to remote object storage
// under the same progress contract as the download backends.
package storage

import (
	"context"
	"io"
	"sync"
	"time"

	"fetchbot/internal/format"
)

// ProgressFunc receives a rendered upload status string, at most once per
// rate-limit window.
type ProgressFunc func(text string)

// Service uploads one local file under a remote name and returns the byte
// count and the shareable link. A transport-level success with an
// unusable response payload is an error, not a success.
type Service interface {
	Upload(ctx context.Context, localPath, remoteName string, onProgress ProgressFunc) (int64, string, error)
}

const progressInterval = 2 * time.Second

// countingReader streams the upload body while reporting rendered progress
// under the rate limit.
type countingReader struct {
	mu    sync.Mutex
	r     io.Reader
	fname string
	total int64
	done  int64
	start time.Time
	last  time.Time
	cb    ProgressFunc
}

func newCountingReader(r io.Reader, fname string, total int64, cb ProgressFunc) *countingReader {
	return &countingReader{
		r:     r,
		fname: fname,
		total: total,
		start: time.Now(),
		cb:    cb,
	}
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.mu.Lock()
		c.done += int64(n)
		now := time.Now()
		if c.cb != nil && now.Sub(c.last) >= progressInterval {
			c.last = now
			c.report()
		}
		c.mu.Unlock()
	}
	return n, err
}

func (c *countingReader) report() {
	elapsed := time.Since(c.start)
	rate := 0.0
	if elapsed > 0 {
		rate = float64(c.done) / elapsed.Seconds()
	}
	c.cb(format.Snapshot{
		Action:   "Uploading",
		Filename: c.fname,
		Done:     c.done,
		Total:    c.total,
		Elapsed:  elapsed,
		Rate:     rate,
	}.Render())
}
