package filewatcher

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"studyplanner_backend/pkg/logger"
)

type ReloadFunc func()

// Watch monitors the directory containing path and invokes reload, debounced,
// whenever the file is created, written, or renamed into place. The directory
// is watched rather than the file itself because atomic writers replace the
// file via rename, which would invalidate a file-level watch. Blocks until the
// watcher fails; run it in a goroutine.
func Watch(path string, debounce time.Duration, reload ReloadFunc) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	target := filepath.Base(absPath)

	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return err
	}

	var mu sync.Mutex
	timer := time.NewTimer(0)
	<-timer.C

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				mu.Lock()
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(debounce)
				mu.Unlock()
			}
		case <-timer.C:
			logger.Log.Info("Watched file changed, reloading", zap.String("path", absPath))
			reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Log.Error("File watcher error", zap.Error(err))
		}
	}
}
