// Package worker executes admitted jobs end to end: download, upload,
// cleanup, and exactly one terminal status per job.
package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"fetchbot/internal/downloader"
	"fetchbot/internal/format"
	"fetchbot/internal/stats"
	"fetchbot/internal/storage"
)

// Fetcher downloads one source locator to destPath. Both transfer backends
// satisfy it.
type Fetcher interface {
	Fetch(ctx context.Context, source, destPath string, onStatus downloader.StatusFunc) (int64, error)
}

// Job is one admitted end-to-end transfer.
type Job struct {
	SubmitterID int64
	Source      string
	Filename    string
}

// Callbacks report a running job back to its submitter. OnStatus feeds the
// rate-limited live-status channel; OnNotify delivers standalone messages
// (the final link); OnDone fires exactly once with a non-empty terminal
// status, after cleanup.
type Callbacks struct {
	OnStatus func(text string)
	OnNotify func(text string)
	OnDone   func(finalStatus string)
}

type Config struct {
	DataDir    string
	MaxWorkers int
	Logger     *logrus.Logger
}

// Engine runs jobs on a bounded pool. Submissions beyond the bound wait in
// their own goroutine for a slot, never blocking the submitter's
// interactive flow.
type Engine struct {
	cfg    Config
	http   Fetcher
	magnet Fetcher
	store  storage.Service
	ledger *stats.Ledger

	sem    chan struct{}
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func New(cfg Config, httpFetcher, magnetFetcher Fetcher, store storage.Service, ledger *stats.Ledger) *Engine {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 4
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Engine{
		cfg:    cfg,
		http:   httpFetcher,
		magnet: magnetFetcher,
		store:  store,
		ledger: ledger,
		sem:    make(chan struct{}, cfg.MaxWorkers),
	}
}

func (e *Engine) Start(ctx context.Context) error {
	if err := os.MkdirAll(e.cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create download root: %w", err)
	}
	e.ctx, e.cancel = context.WithCancel(ctx)
	return nil
}

// Shutdown waits for in-flight jobs; they always run to a terminal state.
func (e *Engine) Shutdown() {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
}

// Submit queues the job and returns immediately.
func (e *Engine) Submit(job Job, cb Callbacks) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		select {
		case <-e.ctx.Done():
			cb.OnDone("❌ *Task aborted: server shutting down\\.*")
			return
		case e.sem <- struct{}{}:
		}
		defer func() { <-e.sem }()

		final := e.run(job, cb)
		if final == "" {
			// defensive: every branch sets a terminal status
			final = "*Task finished with unknown state\\.*"
		}
		cb.OnDone(final)
	}()
}

// run executes one job and returns its terminal status. Any panic in a
// backend is trapped here and mapped to a generic failure; the temporary
// task directory is removed on every path.
func (e *Engine) run(job Job, cb Callbacks) (final string) {
	logger := e.cfg.Logger.WithField("user_id", job.SubmitterID)
	name := format.Escape(job.Filename)

	// announce before touching the disk so the submitter sees progress even
	// when directory creation stalls
	cb.OnStatus(fmt.Sprintf("*Status:* Preparing task for `%s`\\.", name))

	taskDir := filepath.Join(e.cfg.DataDir, "task-"+uuid.NewString())
	if err := os.MkdirAll(taskDir, 0o755); err != nil {
		logger.Errorf("create task dir: %v", err)
		return fmt.Sprintf("❌ *Download failed for* `%s`\\.", name)
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("unhandled job failure: %v", r)
			final = fmt.Sprintf("❌ *An unexpected error occurred while processing* `%s`\\.", name)
		}
	}()
	defer func() {
		if err := os.RemoveAll(taskDir); err != nil {
			logger.Warnf("cleanup task dir: %v", err)
		}
	}()

	fetcher := e.http
	if strings.HasPrefix(job.Source, "magnet:") {
		fetcher = e.magnet
	}

	destPath := filepath.Join(taskDir, job.Filename)
	downloaded, err := fetcher.Fetch(e.ctx, job.Source, destPath, cb.OnStatus)
	if err != nil {
		logger.Errorf("download failed: %v", err)
		return fmt.Sprintf("❌ *Download failed for* `%s`\\.", name)
	}

	// the resource cost was real even if the upload fails later
	e.ledger.AddDownloaded(downloaded)
	logger.Infof("download complete: %s (%s)", job.Filename, format.Bytes(downloaded))

	uploaded, link, err := e.store.Upload(e.ctx, destPath, job.Filename, func(text string) {
		cb.OnStatus(text)
	})
	if err != nil {
		logger.Errorf("upload failed: %v", err)
		return fmt.Sprintf("❌ *Upload failed for* `%s`\\.", name)
	}

	e.ledger.RecordUpload(uploaded, job.Filename, link)
	logger.Infof("upload complete: %s -> %s", job.Filename, link)

	cb.OnNotify(fmt.Sprintf("✅ *Upload successful\\!*\n\n*File:* `%s`\n*Link:* %s",
		name, format.Escape(link)))

	return fmt.Sprintf("✅ *Task complete for:* `%s`", name)
}
