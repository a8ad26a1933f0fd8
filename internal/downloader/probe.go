package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/vfaronov/httpheader"
)

// ProbeTimeout bounds the metadata probe; transfers themselves carry no
// overall deadline.
const ProbeTimeout = 15 * time.Second

// ProbeResult carries source metadata resolved before admission.
type ProbeResult struct {
	Filename string
	Size     int64
}

// Prober resolves source metadata for the filename negotiation flow.
type Prober interface {
	Probe(ctx context.Context, rawurl string) (*ProbeResult, error)
}

// HTTPProber issues a ranged GET so servers that reject HEAD still answer,
// and reads the filename from Content-Disposition or the final URL path.
type HTTPProber struct {
	Client *http.Client
}

func NewHTTPProber() *HTTPProber {
	return &HTTPProber{Client: &http.Client{Timeout: ProbeTimeout}}
}

func (p *HTTPProber) Probe(ctx context.Context, rawurl string) (*ProbeResult, error) {
	probeCtx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, rawurl, nil)
	if err != nil {
		return nil, fmt.Errorf("build probe request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Range", "bytes=0-0")

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("probe request: %w", err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	result := &ProbeResult{}
	switch resp.StatusCode {
	case http.StatusPartialContent:
		// Content-Range: bytes 0-0/TOTAL
		if cr := resp.Header.Get("Content-Range"); cr != "" {
			if idx := strings.LastIndex(cr, "/"); idx != -1 && cr[idx+1:] != "*" {
				result.Size, _ = strconv.ParseInt(cr[idx+1:], 10, 64)
			}
		}
	case http.StatusOK:
		if cl := resp.Header.Get("Content-Length"); cl != "" {
			result.Size, _ = strconv.ParseInt(cl, 10, 64)
		}
	default:
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if _, fname, _ := httpheader.ContentDisposition(resp.Header); fname != "" {
		result.Filename = fname
	} else {
		result.Filename = filenameFromURL(resp.Request.URL)
	}
	if result.Filename == "" {
		return nil, fmt.Errorf("could not resolve filename for %s", rawurl)
	}
	return result, nil
}

func filenameFromURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" {
		return ""
	}
	if decoded, err := url.PathUnescape(base); err == nil {
		return decoded
	}
	return base
}
