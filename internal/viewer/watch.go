package viewer

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/logger"
)

// fileWatcher reports writes to one file. It watches the parent directory
// because editors often save by replacing the file.
type fileWatcher struct {
	watcher *fsnotify.Watcher
	changed chan string
	done    chan struct{}

	mu     sync.Mutex
	target string
	dir    string
}

func newFileWatcher() (*fileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	fw := &fileWatcher{
		watcher: w,
		changed: make(chan string, 1),
		done:    make(chan struct{}),
	}
	go fw.loop()
	return fw, nil
}

// Watch replaces the watched file with path.
func (fw *fileWatcher) Watch(path string) error {
	path = filepath.Clean(path)
	dir := filepath.Dir(path)

	fw.mu.Lock()
	defer fw.mu.Unlock()
	if dir != fw.dir {
		if fw.dir != "" {
			_ = fw.watcher.Remove(fw.dir)
		}
		fw.dir = ""
		if err := fw.watcher.Add(dir); err != nil {
			fw.target = ""
			return err
		}
		fw.dir = dir
	}
	fw.target = path
	return nil
}

// Changed delivers the watched path after it was written. Bursts collapse
// into one pending notification.
func (fw *fileWatcher) Changed() <-chan string {
	return fw.changed
}

// Close stops watching and waits for the event goroutine to exit.
func (fw *fileWatcher) Close() error {
	err := fw.watcher.Close()
	<-fw.done
	return err
}

func (fw *fileWatcher) loop() {
	defer close(fw.done)
	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || !fw.matches(event.Name) {
				continue
			}
			select {
			case fw.changed <- event.Name:
			default:
			}
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("file watcher error", zap.Error(err))
		}
	}
}

func (fw *fileWatcher) matches(name string) bool {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.target != "" && filepath.Clean(name) == fw.target
}
