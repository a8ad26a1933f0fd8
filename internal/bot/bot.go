// Package bot interprets submitter commands: the filename negotiation
// flow, job admission, live-status attachment, and the informational
// commands.
package bot

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/sirupsen/logrus"

	"fetchbot/internal/downloader"
	"fetchbot/internal/filename"
	"fetchbot/internal/livestatus"
	"fetchbot/internal/registry"
	"fetchbot/internal/stats"
	"fetchbot/internal/transport"
	"fetchbot/internal/worker"
)

// Commands accepted on the messaging surface. Message carries the free-text
// inputs the negotiation states consume.
const (
	CmdStart      = "start"
	CmdSend       = "send"
	CmdInfo       = "info"
	CmdSavedLinks = "savedlinks"
	CmdStats      = "stats"
	CmdHealth     = "health"
	CmdCancel     = "cancel"
	CmdMessage    = "message"
)

const magnetPlaceholderName = "magnet_download"

// Submitter enqueues admitted jobs; satisfied by *worker.Engine.
type Submitter interface {
	Submit(job worker.Job, cb Callbacks)
}

// Callbacks aliases the worker's reporting contract.
type Callbacks = worker.Callbacks

// Bot wires one submitter's commands to the orchestration core. Chat id and
// submitter id are the same identity.
type Bot struct {
	Registry  *registry.Registry
	Engine    Submitter
	Ledger    *stats.Ledger
	Messenger transport.Messenger
	Prober    downloader.Prober
	Logger    *logrus.Logger
	DiskPath  string

	mu       sync.Mutex
	sessions map[int64]*session
}

func New(reg *registry.Registry, engine Submitter, ledger *stats.Ledger, messenger transport.Messenger, prober downloader.Prober, logger *logrus.Logger) *Bot {
	if logger == nil {
		logger = logrus.New()
	}
	return &Bot{
		Registry:  reg,
		Engine:    engine,
		Ledger:    ledger,
		Messenger: messenger,
		Prober:    prober,
		Logger:    logger,
		DiskPath:  "/",
		sessions:  make(map[int64]*session),
	}
}

// HandleCommand consumes one command with its free-text payload. All
// replies go through the messenger; the returned error covers transport
// failures only.
func (b *Bot) HandleCommand(ctx context.Context, userID int64, command, payload string) error {
	logger := b.Logger.WithField("user_id", userID)
	logger.Infof("command %q", command)

	switch command {
	case CmdStart:
		return b.reply(ctx, userID, welcomeMessage())
	case CmdSend:
		return b.handleSend(ctx, userID)
	case CmdInfo:
		return b.handleInfo(ctx, userID)
	case CmdSavedLinks:
		return b.reply(ctx, userID, savedLinksMessage(b.Ledger.SavedLinks()))
	case CmdStats:
		return b.reply(ctx, userID, statsMessage(b.Ledger.Snapshot()))
	case CmdHealth:
		return b.handleHealth(ctx, userID)
	case CmdCancel:
		return b.handleCancel(ctx, userID)
	case CmdMessage:
		return b.handleMessage(ctx, userID, strings.TrimSpace(payload))
	default:
		return b.reply(ctx, userID, "Unknown command\\. Use start for help\\.")
	}
}

func (b *Bot) reply(ctx context.Context, userID int64, text string) error {
	_, err := b.Messenger.Send(ctx, userID, text)
	return err
}

func (b *Bot) handleSend(ctx context.Context, userID int64) error {
	if _, active := b.Registry.Lookup(userID); active {
		b.Logger.WithField("user_id", userID).Warn("submission refused, task already active")
		return b.reply(ctx, userID, "You already have an active task\\. Please wait for it to complete\\.")
	}

	b.mu.Lock()
	b.sessions[userID] = &session{state: stateAwaitingLink}
	b.mu.Unlock()

	return b.reply(ctx, userID, "Please send me the URL or magnet link to process\\.")
}

func (b *Bot) handleCancel(ctx context.Context, userID int64) error {
	b.mu.Lock()
	delete(b.sessions, userID)
	b.mu.Unlock()

	return b.reply(ctx, userID, "Operation cancelled\\. Note: any in\\-progress download/upload will continue\\.")
}

func (b *Bot) handleMessage(ctx context.Context, userID int64, text string) error {
	b.mu.Lock()
	sess, ok := b.sessions[userID]
	b.mu.Unlock()
	if !ok {
		return b.reply(ctx, userID, "Nothing to do with that\\. Use send to start a job\\.")
	}

	// the transport dispatches concurrently; one transition at a time
	sess.mu.Lock()
	defer sess.mu.Unlock()

	switch sess.state {
	case stateAwaitingLink:
		return b.receiveLink(ctx, userID, sess, text)
	case stateAwaitingChoice:
		return b.receiveChoice(ctx, userID, sess, text)
	case stateAwaitingCustomName:
		return b.endSession(ctx, userID, sess.url, filename.Custom(text, sess.names.Original))
	}
	return nil
}

func (b *Bot) receiveLink(ctx context.Context, userID int64, sess *session, url string) error {
	ref, err := b.Messenger.Send(ctx, userID, "_Fetching file details\\.\\.\\._")
	if err != nil {
		return err
	}

	original := magnetPlaceholderName
	if !strings.HasPrefix(url, "magnet:") {
		result, probeErr := b.Prober.Probe(ctx, url)
		if probeErr != nil {
			b.Logger.WithField("user_id", userID).Warnf("probe failed: %v", probeErr)
			b.mu.Lock()
			delete(b.sessions, userID)
			b.mu.Unlock()
			return b.edit(ctx, ref, "Could not fetch file details\\. Please check the URL\\.")
		}
		original = result.Filename
	}

	sess.url = url
	sess.names = filename.Candidates(original)
	sess.state = stateAwaitingChoice

	return b.edit(ctx, ref, filenameChoiceMessage(sess.names.Original, sess.names.Smart, sess.names.Short))
}

func (b *Bot) receiveChoice(ctx context.Context, userID int64, sess *session, choice string) error {
	switch strings.ToLower(choice) {
	case "full", "1":
		return b.endSession(ctx, userID, sess.url, sess.names.Original)
	case "smart", "2":
		return b.endSession(ctx, userID, sess.url, sess.names.Smart)
	case "short", "3":
		return b.endSession(ctx, userID, sess.url, sess.names.Short)
	case "custom", "4":
		sess.state = stateAwaitingCustomName
		return b.reply(ctx, userID, "Please reply with your desired custom filename\\.")
	default:
		return b.reply(ctx, userID, "Please choose one of: full, smart, short, custom\\.")
	}
}

// endSession resolves the negotiation and hands the job over. The
// interactive flow ends unconditionally, whether or not admission succeeds.
func (b *Bot) endSession(ctx context.Context, userID int64, url, finalName string) error {
	b.mu.Lock()
	delete(b.sessions, userID)
	b.mu.Unlock()

	_, err := b.Registry.Admit(userID, finalName)
	if err != nil {
		if errors.Is(err, registry.ErrTaskActive) {
			return b.reply(ctx, userID, "You already have an active task\\. Please wait for it to complete\\.")
		}
		return err
	}
	b.Registry.SetStatus(userID, "Initializing\\.\\.\\.")

	b.Logger.WithField("user_id", userID).Infof("submitting job %q", finalName)

	b.Engine.Submit(worker.Job{
		SubmitterID: userID,
		Source:      url,
		Filename:    finalName,
	}, Callbacks{
		OnStatus: func(text string) {
			b.Registry.SetStatus(userID, text)
		},
		OnNotify: func(text string) {
			if _, sendErr := b.Messenger.Send(context.Background(), userID, text); sendErr != nil {
				b.Logger.WithField("user_id", userID).Warnf("notify: %v", sendErr)
			}
		},
		OnDone: func(finalStatus string) {
			b.finishTask(userID, finalStatus)
		},
	})

	return b.reply(ctx, userID, "✅ *Task started successfully\\!* Use info to track progress\\.")
}

// finishTask removes the registry entry exactly once and delivers the
// terminal status through the sink attached at that moment, or as a plain
// message when none was.
func (b *Bot) finishTask(userID int64, finalStatus string) {
	ctx := context.Background()
	logger := b.Logger.WithField("user_id", userID)

	task, ok := b.Registry.Remove(userID)
	if !ok {
		logger.Warn("finished task missing from registry")
		return
	}

	if sink := task.Sink(); sink != nil {
		if err := b.Messenger.Edit(ctx, *sink, finalStatus); err != nil && !errors.Is(err, transport.ErrNotModified) {
			logger.Warnf("could not edit final status: %v", err)
		}
		return
	}
	if _, err := b.Messenger.Send(ctx, userID, finalStatus); err != nil {
		logger.Warnf("could not send final status: %v", err)
	}
}

func (b *Bot) handleInfo(ctx context.Context, userID int64) error {
	task, ok := b.Registry.Lookup(userID)
	if !ok {
		return b.reply(ctx, userID, "You have no active tasks\\.")
	}

	ref, err := b.Messenger.Send(ctx, userID, "`Querying status\\.\\.\\.`")
	if err != nil {
		return err
	}

	if err := b.Registry.AttachSink(userID, ref); err != nil {
		if errors.Is(err, registry.ErrSinkAttached) {
			return b.edit(ctx, ref, "A live status update is already active for your task\\.")
		}
		// the task finished between lookup and attach
		return b.edit(ctx, ref, "You have no active tasks\\.")
	}

	reader := &livestatus.Reader{
		Registry:  b.Registry,
		Messenger: b.Messenger,
		Logger:    b.Logger,
	}
	go reader.Run(context.Background(), task, ref)

	b.Logger.WithField("user_id", userID).Info("live status reader started")
	return nil
}

func (b *Bot) handleHealth(ctx context.Context, userID int64) error {
	usage, err := disk.UsageWithContext(ctx, b.DiskPath)
	if err != nil {
		b.Logger.Warnf("disk usage: %v", err)
		return b.reply(ctx, userID, "Could not read server status\\.")
	}
	c := b.Ledger.Snapshot()
	return b.reply(ctx, userID, healthMessage(usage.Total, usage.Used, usage.Free, c.Downloaded+c.Uploaded))
}

func (b *Bot) edit(ctx context.Context, ref transport.MessageRef, text string) error {
	if err := b.Messenger.Edit(ctx, ref, text); err != nil && !errors.Is(err, transport.ErrNotModified) {
		return err
	}
	return nil
}
