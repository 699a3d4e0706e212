package main

import (
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchConfigFile watches path for writes and logs a restart-required
// warning, debounced so editors that write-then-rename don't trigger
// filesystem churn before reacting. Process config (credentials, queue
// depths) isn't safe to hot-swap into already-constructed provider
// clients, so this stops short of an actual reload — it just makes a
// stale-running-config misconfiguration visible without a separate
// monitoring hook.
func watchConfigFile(path string, logger *slog.Logger) func() {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("config file watch disabled", "error", err)
		return func() {}
	}
	if err := watcher.Add(path); err != nil {
		logger.Warn("config file watch disabled", "path", path, "error", err)
		_ = watcher.Close()
		return func() {}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		var mu sync.Mutex
		var timer *time.Timer
		scheduleWarn := func() {
			mu.Lock()
			defer mu.Unlock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(250*time.Millisecond, func() {
				logger.Warn("config file changed on disk; restart the process to apply it", "path", path)
			})
		}

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					scheduleWarn()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("config file watch error", "error", err)
			}
		}
	}()

	return func() {
		_ = watcher.Close()
		<-done
	}
}
