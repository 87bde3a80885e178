package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Editors tend to write a file in several steps, only reload once things settle
const reloadDebounce = 150 * time.Millisecond

// Watcher reloads the config file whenever it changes on disk
type Watcher struct {
	path     string
	log      logrus.FieldLogger
	onChange func(*Config)
	fs       *fsnotify.Watcher
	done     chan struct{}
	wg       sync.WaitGroup

	timerLock sync.Mutex
	timer     *time.Timer
}

// Watch starts watching path. onChange gets called with the freshly loaded config
// from the watcher's own goroutine, callers have to hand it over to the loop themselves.
// The directory is watched instead of the file so that atomic replaces (rename over) are noticed
func Watch(path string, log logrus.FieldLogger, onChange func(*Config)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	path = filepath.Clean(path)
	if err = fsw.Add(filepath.Dir(path)); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	w := &Watcher{
		path:     path,
		log:      log.WithField("path", path),
		onChange: onChange,
		fs:       fsw,
		done:     make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			w.log.WithField("op", ev.Op.String()).Debugln("Config file changed")
			w.schedule()
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.WithError(err).Warnln("Config watcher error")
		}
	}
}

func (w *Watcher) schedule() {
	w.timerLock.Lock()
	defer w.timerLock.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(reloadDebounce, w.reload)
}

func (w *Watcher) reload() {
	select {
	case <-w.done:
		return
	default:
	}
	w.log.Infoln("Reloading config")
	w.onChange(Load(w.path, w.log))
}

// Close stops watching. No onChange call starts after Close returns
func (w *Watcher) Close() error {
	close(w.done)
	w.timerLock.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timerLock.Unlock()
	err := w.fs.Close()
	w.wg.Wait()
	return err
}
