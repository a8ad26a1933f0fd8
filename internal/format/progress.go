package format

import (
	"fmt"
	"strings"
	"time"
)

// Snapshot is one instantaneous transfer measurement. It is rendered to a
// display string and never persisted.
type Snapshot struct {
	Action   string // Downloading, Uploading, or a torrent engine state
	Filename string
	Done     int64
	Total    int64 // 0 when the source declares no size
	Elapsed  time.Duration
	Rate     float64 // bytes per second

	// torrent-only fields
	Peers    int
	Seeds    int
	Leechers int
	HasPeers bool
}

// Percent is the progress fraction, 0 when the total is unknown.
func (s Snapshot) Percent() float64 {
	if s.Total <= 0 {
		return 0
	}
	return float64(s.Done) / float64(s.Total) * 100
}

// ETASeconds estimates remaining seconds, -1 when the rate is zero or the
// total is unknown.
func (s Snapshot) ETASeconds() float64 {
	if s.Rate <= 0 || s.Total <= 0 {
		return -1
	}
	return float64(s.Total-s.Done) / s.Rate
}

// Render produces the escaped multi-line status text shared by every
// transfer backend.
func (s Snapshot) Render() string {
	pct := s.Percent()

	var b strings.Builder
	fmt.Fprintf(&b, "*Status:* %s `%s`\n", Escape(s.Action), Escape(s.Filename))
	fmt.Fprintf(&b, "%s %s\n", ProgressBar(pct), Escape(fmt.Sprintf("%.2f%%", pct)))
	fmt.Fprintf(&b, "`%s` of `%s`\n", Escape(Bytes(s.Done)), Escape(Bytes(s.Total)))
	fmt.Fprintf(&b, "*Speed:* %s", Escape(fmt.Sprintf("%s/s", Bytes(int64(s.Rate)))))
	if s.HasPeers {
		fmt.Fprintf(&b, "\n*Peers:* %s", Escape(fmt.Sprintf("%d (S:%d, L:%d)", s.Peers, s.Seeds, s.Leechers)))
	}
	fmt.Fprintf(&b, "\n*ETA:* %s", Escape(Duration(s.ETASeconds())))
	return b.String()
}
