// Package stats keeps the all-time transfer counters and the saved
// filename-to-link records, persisted best-effort as one JSON document.
package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

// Counters are the monotonically increasing byte totals.
type Counters struct {
	Downloaded int64 `json:"downloaded"`
	Uploaded   int64 `json:"uploaded"`
}

type document struct {
	Stats      Counters          `json:"stats"`
	SavedLinks map[string]string `json:"saved_links"`
}

// Ledger guards the counters and saved links behind an in-memory lock and
// rewrites the backing file wholesale on every mutation. mu covers only the
// in-memory state and marshaling, never file I/O, so readers are never
// blocked behind a disk write; fileMu serializes writers so renames land in
// mutation order. Persistence failures are logged, never surfaced: losing a
// write between mutation and crash is accepted.
type Ledger struct {
	mu     sync.Mutex
	fileMu sync.Mutex
	path   string
	logger *logrus.Logger

	counters Counters
	links    map[string]string
}

// Load reads the ledger from path. A missing or malformed file falls back
// to zeroed state and is never fatal.
func Load(path string, logger *logrus.Logger) *Ledger {
	if logger == nil {
		logger = logrus.New()
	}
	ledger := &Ledger{
		path:   path,
		logger: logger,
		links:  make(map[string]string),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warnf("could not load stats file: %v", err)
		}
		return ledger
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		logger.Warnf("could not parse stats file: %v", err)
		return ledger
	}
	ledger.counters = doc.Stats
	if doc.SavedLinks != nil {
		ledger.links = doc.SavedLinks
	}
	return ledger
}

// AddDownloaded credits downloaded bytes and persists.
func (l *Ledger) AddDownloaded(n int64) {
	l.fileMu.Lock()
	defer l.fileMu.Unlock()

	l.mu.Lock()
	l.counters.Downloaded += n
	data, err := l.marshal()
	l.mu.Unlock()

	l.persist(data, err)
}

// RecordUpload credits uploaded bytes, saves the filename-to-link record
// (last write for a filename wins), and persists.
func (l *Ledger) RecordUpload(n int64, fname, link string) {
	l.fileMu.Lock()
	defer l.fileMu.Unlock()

	l.mu.Lock()
	l.counters.Uploaded += n
	l.links[fname] = link
	data, err := l.marshal()
	l.mu.Unlock()

	l.persist(data, err)
}

// Snapshot returns a copy of the counters.
func (l *Ledger) Snapshot() Counters {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counters
}

// SavedLinks returns a copy of the filename-to-link records.
func (l *Ledger) SavedLinks() map[string]string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]string, len(l.links))
	for k, v := range l.links {
		out[k] = v
	}
	return out
}

// Persist rewrites the backing file from current state. Called once more at
// shutdown; re-persisting identical state is harmless.
func (l *Ledger) Persist() {
	l.fileMu.Lock()
	defer l.fileMu.Unlock()

	l.mu.Lock()
	data, err := l.marshal()
	l.mu.Unlock()

	l.persist(data, err)
}

// marshal snapshots current state; the caller holds mu.
func (l *Ledger) marshal() ([]byte, error) {
	doc := document{Stats: l.counters, SavedLinks: l.links}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal stats: %w", err)
	}
	return data, nil
}

// persist writes a marshaled snapshot; the caller holds fileMu but not mu.
func (l *Ledger) persist(data []byte, err error) {
	if err == nil {
		err = l.writeFile(data)
	}
	if err != nil {
		l.logger.Errorf("could not save stats file: %v", err)
		return
	}
	l.logger.Debug("stats data saved to disk")
}

func (l *Ledger) writeFile(data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(l.path), ".stats-*.json")
	if err != nil {
		return fmt.Errorf("create temp stats file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write stats: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close stats file: %w", err)
	}
	if err := os.Rename(tmp.Name(), l.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace stats file: %w", err)
	}
	return nil
}
