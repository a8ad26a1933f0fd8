package format

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSnapshotPercent(t *testing.T) {
	s := Snapshot{Done: 600000, Total: 1000000}
	assert.InDelta(t, 60.0, s.Percent(), 0.001)

	s = Snapshot{Done: 1000000, Total: 1000000}
	assert.InDelta(t, 100.0, s.Percent(), 0.001)

	// unknown total reports indeterminate progress
	s = Snapshot{Done: 12345, Total: 0}
	assert.Equal(t, 0.0, s.Percent())
}

func TestSnapshotETA(t *testing.T) {
	s := Snapshot{Done: 250, Total: 1000, Rate: 250}
	assert.InDelta(t, 3.0, s.ETASeconds(), 0.001)

	// zero rate yields the unknown sentinel
	s = Snapshot{Done: 250, Total: 1000, Rate: 0}
	assert.Equal(t, -1.0, s.ETASeconds())

	s = Snapshot{Done: 250, Total: 0, Rate: 100}
	assert.Equal(t, -1.0, s.ETASeconds())
}

func TestSnapshotRender(t *testing.T) {
	s := Snapshot{
		Action:   "Downloading",
		Filename: "a.bin",
		Done:     600000,
		Total:    1000000,
		Elapsed:  2 * time.Second,
		Rate:     300000,
	}
	text := s.Render()
	assert.Contains(t, text, "Downloading")
	assert.Contains(t, text, `60\.00%`)
	assert.Contains(t, text, "[■■■■■■□□□□]")
	assert.NotContains(t, text, "Peers")
}

func TestSnapshotRenderWithPeers(t *testing.T) {
	s := Snapshot{
		Action:   "Downloading",
		Filename: "a.bin",
		Done:     1,
		Total:    2,
		Peers:    10,
		Seeds:    4,
		Leechers: 6,
		HasPeers: true,
	}
	text := s.Render()
	assert.Contains(t, text, `10 \(S:4, L:6\)`)
	assert.Equal(t, 6, len(strings.Split(text, "\n")))
}
