package downloader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/anacrolix/torrent"
	tstorage "github.com/anacrolix/torrent/storage"
	"github.com/sirupsen/logrus"

	"fetchbot/internal/filename"
	"fetchbot/internal/format"
)

// Torrent fetches magnet sources through a shared BitTorrent engine client.
type Torrent struct {
	Root     string
	Interval time.Duration
	Trackers []string
	Logger   *logrus.Logger

	client *torrent.Client
}

func NewTorrent(root string, logger *logrus.Logger) *Torrent {
	if logger == nil {
		logger = logrus.New()
	}
	return &Torrent{
		Root:     root,
		Interval: StatusInterval,
		Trackers: defaultTrackers(),
		Logger:   logger,
	}
}

// Start brings up the torrent engine client. Root is only its fallback
// data dir; every fetch supplies its own storage.
func (t *Torrent) Start() error {
	cfg := torrent.NewDefaultClientConfig()
	cfg.DataDir = t.Root
	cfg.NoUpload = false
	cfg.Seed = false

	client, err := torrent.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("create torrent client: %w", err)
	}
	t.client = client
	t.Logger.Infof("torrent engine started, data dir: %s", t.Root)
	return nil
}

func (t *Torrent) Close() {
	if t.client != nil {
		t.client.Close()
	}
}

// Fetch downloads a magnet link, waits for the engine's terminal condition,
// and renames the engine-named output to destPath. Each fetch gets its own
// storage rooted next to destPath, so same-named torrents running at the
// same time never share paths. A missing output after completion is an
// error, not silently ignored.
func (t *Torrent) Fetch(ctx context.Context, magnetURI, destPath string, onStatus StatusFunc) (int64, error) {
	spec, err := torrent.TorrentSpecFromMagnetUri(magnetURI)
	if err != nil {
		return 0, fmt.Errorf("parse magnet: %w", err)
	}
	store := tstorage.NewFile(filepath.Dir(destPath))
	defer store.Close()
	spec.Storage = store

	tr, _, err := t.client.AddTorrentSpec(spec)
	if err != nil {
		return 0, fmt.Errorf("add magnet: %w", err)
	}
	defer tr.Drop()

	for _, tracker := range t.Trackers {
		tr.AddTrackers([][]string{{tracker}})
	}

	if onStatus != nil {
		onStatus(format.Snapshot{
			Action:   "Fetching metadata",
			Filename: filepath.Base(destPath),
		}.Render())
	}

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-tr.GotInfo():
	}

	info := tr.Info()
	if info == nil {
		return 0, fmt.Errorf("missing torrent info")
	}
	total := info.TotalLength()
	name := info.BestName()

	tr.DownloadAll()

	start := time.Now()
	interval := t.Interval
	if interval <= 0 {
		interval = StatusInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for tr.BytesMissing() > 0 {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-ticker.C:
		}

		if onStatus == nil {
			continue
		}
		done := tr.BytesCompleted()
		elapsed := time.Since(start)
		rate := 0.0
		if elapsed > 0 {
			rate = float64(done) / elapsed.Seconds()
		}
		stats := tr.Stats()
		leechers := stats.ActivePeers - stats.ConnectedSeeders
		if leechers < 0 {
			leechers = 0
		}
		onStatus(format.Snapshot{
			Action:   torrentState(tr),
			Filename: name,
			Done:     done,
			Total:    total,
			Elapsed:  elapsed,
			Rate:     rate,
			Peers:    stats.ActivePeers,
			Seeds:    stats.ConnectedSeeders,
			Leechers: leechers,
			HasPeers: true,
		}.Render())
	}

	src, err := locateOutput(filepath.Dir(destPath), name)
	if err != nil {
		return 0, err
	}
	if err := os.Rename(src, destPath); err != nil {
		return 0, fmt.Errorf("rename torrent output: %w", err)
	}

	t.Logger.Infof("torrent download finished: %s (%s)", name, format.Bytes(total))
	return total, nil
}

// locateOutput finds the engine's output under dir by its torrent name,
// preferring the sanitized form the engine writes on most platforms.
func locateOutput(dir, name string) (string, error) {
	src := filepath.Join(dir, filename.Sanitize(name))
	if _, err := os.Stat(src); err == nil {
		return src, nil
	}
	// the engine may have written the unsanitized name
	raw := filepath.Join(dir, name)
	if _, err := os.Stat(raw); err == nil {
		return raw, nil
	}
	return "", fmt.Errorf("torrent output missing: %s", src)
}

func torrentState(tr *torrent.Torrent) string {
	if tr.Info() == nil {
		return "Fetching metadata"
	}
	if tr.BytesMissing() == 0 {
		return "Finished"
	}
	return "Downloading"
}

func defaultTrackers() []string {
	return []string{
		"udp://tracker.opentrackr.org:1337/announce",
		"udp://tracker.openbittorrent.com:6969/announce",
		"udp://open.stealth.si:80/announce",
		"udp://exodus.desync.com:6969/announce",
		"http://tracker.opentrackr.org:1337/announce",
		"udp://tracker.torrent.eu.org:451/announce",
	}
}
