package store

import (
	"log"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/livepreview/swing"
)

// Watcher watches a bundle directory and forwards edits to the engine. Only
// files the classifier recognizes (role documents and the manifest) produce
// events; everything else in the directory is ignored.
type Watcher struct {
	watcher  *fsnotify.Watcher
	dir      string
	onChange func(name, content string)
	done     chan bool
	debug    bool
}

// NewWatcher creates a watcher for the given bundle directory. onChange is
// invoked with the file name and its freshly read content.
func NewWatcher(dir string, onChange func(name, content string), debug bool) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:  fsWatcher,
		dir:      dir,
		onChange: onChange,
		done:     make(chan bool),
		debug:    debug,
	}

	if err := fsWatcher.Add(dir); err != nil {
		fsWatcher.Close()
		return nil, err
	}
	return w, nil
}

// Start begins watching for file changes.
func (w *Watcher) Start() {
	go func() {
		for {
			select {
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}

				if event.Op&fsnotify.Write != fsnotify.Write && event.Op&fsnotify.Create != fsnotify.Create {
					continue
				}

				name := filepath.Base(event.Name)
				if _, ok := swing.Classify(name); !ok {
					continue
				}

				content, err := os.ReadFile(event.Name)
				if err != nil {
					log.Printf("[Watch] Read failed for %s: %v", name, err)
					continue
				}

				if w.debug {
					log.Printf("[Watch] File changed: %s", name)
				}
				w.onChange(name, string(content))

			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				log.Printf("[Watch] Error: %v", err)

			case <-w.done:
				return
			}
		}
	}()
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.watcher.Close()
}
