package importer

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// processedDirName is the inbox subdirectory imported files are moved to.
const processedDirName = "processed"

// settleDelay is how long a file must stay quiet before it is imported,
// so partially written drops are not picked up mid-copy.
const settleDelay = 500 * time.Millisecond

// EventCallback is called after a watcher-driven import completes.
type EventCallback func(recordingID int64, path string)

var importableExts = map[string]bool{
	".csv":  true,
	".txt":  true,
	".log":  true,
	".xls":  true,
	".xlsx": true,
}

// Watch starts an fsnotify watcher on the inbox directory and imports data
// files dropped there until ctx is cancelled. Imported files are moved into
// the processed/ subdirectory; files that fail to import stay in place.
// It calls cb (if non-nil) after each successful import.
func Watch(ctx context.Context, svc *Service, inbox string, logger *slog.Logger, cb EventCallback) error {
	if err := os.MkdirAll(filepath.Join(inbox, processedDirName), 0o755); err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(inbox); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("inbox", inbox))

	// pending tracks files waiting for writes to settle. A single timer
	// fires when the oldest pending file is due.
	pending := make(map[string]time.Time)
	var settleTimer *time.Timer
	var settleCh <-chan time.Time

	scheduleSettle := func() {
		if settleTimer == nil {
			settleTimer = time.NewTimer(settleDelay)
			settleCh = settleTimer.C
		} else {
			settleTimer.Reset(settleDelay)
		}
	}

	// Pick up files that were already waiting when we started.
	sweepInbox(inbox, pending)
	if len(pending) > 0 {
		scheduleSettle()
	}

	for {
		select {
		case <-ctx.Done():
			if settleTimer != nil {
				settleTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-settleCh:
			now := time.Now()
			due := false
			for path, last := range pending {
				if now.Sub(last) < settleDelay {
					due = true
					continue
				}
				delete(pending, path)
				importInboxFile(ctx, svc, inbox, path, logger, cb)
			}
			if due {
				scheduleSettle()
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !importableExts[strings.ToLower(filepath.Ext(ev.Name))] {
				continue
			}
			if info, statErr := os.Stat(ev.Name); statErr != nil || info.IsDir() {
				continue
			}
			pending[ev.Name] = time.Now()
			scheduleSettle()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// importInboxFile imports one settled file and moves it to processed/.
func importInboxFile(ctx context.Context, svc *Service, inbox, path string, logger *slog.Logger, cb EventCallback) {
	id, n, err := svc.ImportFile(ctx, path)
	if err != nil {
		logger.Warn("watcher: import failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return
	}

	dest := filepath.Join(inbox, processedDirName, filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		logger.Warn("watcher: move to processed failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
	}

	logger.Info("watcher: imported",
		slog.String("path", path),
		slog.Int64("recording_id", id),
		slog.Int("samples", n))
	if cb != nil {
		cb(id, path)
	}
}

// sweepInbox queues importable files already present in the inbox.
func sweepInbox(inbox string, pending map[string]time.Time) {
	entries, err := os.ReadDir(inbox)
	if err != nil {
		return
	}
	now := time.Now()
	for _, e := range entries {
		if e.IsDir() || !importableExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		pending[filepath.Join(inbox, e.Name())] = now
	}
}
