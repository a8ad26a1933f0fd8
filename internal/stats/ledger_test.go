package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestLoadMissingFileIsZeroed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	ledger := Load(path, quietLogger())

	assert.Equal(t, Counters{}, ledger.Snapshot())
	assert.Empty(t, ledger.SavedLinks())
}

func TestLoadMalformedFileIsZeroed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	ledger := Load(path, quietLogger())
	assert.Equal(t, Counters{}, ledger.Snapshot())
}

func TestMutationsPersistAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	ledger := Load(path, quietLogger())

	ledger.AddDownloaded(1000)
	ledger.AddDownloaded(500)
	ledger.RecordUpload(900, "a.mkv", "https://files.example/abc")
	ledger.RecordUpload(100, "a.mkv", "https://files.example/def")

	reloaded := Load(path, quietLogger())
	assert.Equal(t, Counters{Downloaded: 1500, Uploaded: 1000}, reloaded.Snapshot())
	// last write for a filename wins
	assert.Equal(t, map[string]string{"a.mkv": "https://files.example/def"}, reloaded.SavedLinks())
}

func TestConcurrentMutationsPersistAllTotals(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	ledger := Load(path, quietLogger())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			ledger.AddDownloaded(10)
		}()
		go func(i int) {
			defer wg.Done()
			ledger.RecordUpload(5, fmt.Sprintf("file-%d.mkv", i), "https://files.example/link")
		}(i)
	}
	wg.Wait()

	assert.Equal(t, Counters{Downloaded: 80, Uploaded: 40}, ledger.Snapshot())

	// the final rename carries the final state
	reloaded := Load(path, quietLogger())
	assert.Equal(t, Counters{Downloaded: 80, Uploaded: 40}, reloaded.Snapshot())
	assert.Len(t, reloaded.SavedLinks(), 8)
}

func TestPersistedDocumentShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	ledger := Load(path, quietLogger())
	ledger.AddDownloaded(42)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Contains(t, doc, "stats")
	assert.Contains(t, doc, "saved_links")
}

func TestSavedLinksReturnsCopy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	ledger := Load(path, quietLogger())
	ledger.RecordUpload(1, "x", "y")

	links := ledger.SavedLinks()
	links["x"] = "mutated"
	assert.Equal(t, "y", ledger.SavedLinks()["x"])
}
