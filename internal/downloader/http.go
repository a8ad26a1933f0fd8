package downloader

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"fetchbot/internal/format"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/120.0.0.0 Safari/537.36"

const copyBufferSize = 1 << 20

// HTTP streams a direct link to disk with chunked progress reporting.
type HTTP struct {
	Client   *http.Client
	Interval time.Duration
	Logger   *logrus.Logger
}

func NewHTTP(logger *logrus.Logger) *HTTP {
	if logger == nil {
		logger = logrus.New()
	}
	return &HTTP{
		// no overall timeout: transfers may legitimately take hours,
		// the dial deadline guards against dead servers
		Client: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: 30 * time.Second}).DialContext,
			},
		},
		Interval: StatusInterval,
		Logger:   logger,
	}
}

// Fetch issues a streaming GET and writes the body to destPath, returning
// the byte count. Progress is computed against the declared Content-Length
// when present; otherwise progress stays indeterminate and only bytes and
// speed are reported.
func (h *HTTP) Fetch(ctx context.Context, rawurl, destPath string, onStatus StatusFunc) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := h.Client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	total := resp.ContentLength
	if total < 0 {
		total = 0
	}

	out, err := os.Create(destPath)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", destPath, err)
	}

	done, err := copyWithProgress(out, resp.Body, total, filepath.Base(destPath), h.Interval, onStatus)
	closeErr := out.Close()
	if err != nil {
		return done, fmt.Errorf("download %s: %w", filepath.Base(destPath), err)
	}
	if closeErr != nil {
		return done, fmt.Errorf("close %s: %w", destPath, closeErr)
	}

	h.Logger.Infof("http download finished: %s (%s)", filepath.Base(destPath), format.Bytes(done))
	return done, nil
}

func copyWithProgress(dst io.Writer, src io.Reader, total int64, fname string, interval time.Duration, onStatus StatusFunc) (int64, error) {
	th := newThrottle(interval)
	start := time.Now()
	buf := make([]byte, copyBufferSize)

	var done int64
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, writeErr := dst.Write(buf[:n]); writeErr != nil {
				return done, writeErr
			}
			done += int64(n)

			if onStatus != nil && th.ready() {
				elapsed := time.Since(start)
				rate := 0.0
				if elapsed > 0 {
					rate = float64(done) / elapsed.Seconds()
				}
				onStatus(format.Snapshot{
					Action:   "Downloading",
					Filename: fname,
					Done:     done,
					Total:    total,
					Elapsed:  elapsed,
					Rate:     rate,
				}.Render())
			}
		}
		if readErr == io.EOF {
			return done, nil
		}
		if readErr != nil {
			return done, readErr
		}
	}
}
