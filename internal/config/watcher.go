package config

import (
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watcher watches a project's .wizard directory and re-runs Load whenever a
// matching config file changes, invoking onChange with the freshly merged
// Config.
type Watcher struct {
	watcher   *fsnotify.Watcher
	directory string
	onChange  func(*Config)
	stopCh    chan struct{}
	doneCh    chan struct{}
	started   bool
	mu        sync.Mutex
}

// NewWatcher creates a Watcher over <directory>/.wizard. Returns nil, nil if
// that directory does not exist; live reload is optional.
func NewWatcher(directory string, onChange func(*Config)) (*Watcher, error) {
	projectDir := ProjectConfigPath(directory)
	dir := projectDirOf(projectDir)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, nil
	}

	return &Watcher{
		watcher:   w,
		directory: directory,
		onChange:  onChange,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}, nil
}

func projectDirOf(projectConfigPath string) string {
	return projectConfigPath[:len(projectConfigPath)-len("/wizard.jsonc")]
}

// Start begins watching in the background.
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()
	go w.run()
}

func (w *Watcher) run() {
	defer close(w.doneCh)
	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := Load(w.directory)
			if err != nil {
				log.Error().Err(err).Msg("config reload failed")
				continue
			}
			if !MatchesWatchPattern(cfg, ev.Name) {
				continue
			}
			log.Info().Str("path", ev.Name).Msg("config reloaded")
			w.onChange(cfg)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("config watcher error")
		}
	}
}

// Stop stops the watcher and releases its inotify handle.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	started := w.started
	w.mu.Unlock()

	select {
	case <-w.stopCh:
	default:
		close(w.stopCh)
	}
	if started {
		<-w.doneCh
	}
	return w.watcher.Close()
}
