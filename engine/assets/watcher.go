package assets

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/prism/engine/core"
)

type AssetKind int

const (
	AssetKindNone AssetKind = iota
	AssetKindModel
	AssetKindImage
	AssetKindShader
)

// Change describes one asset file the watcher saw appear or change on disk.
type Change struct {
	Path string
	Kind AssetKind
}

type assetInfo struct {
	path     string
	kind     AssetKind
	lastSeen time.Time
}

// Watcher keeps a recursive fsnotify watch on the asset directories and
// reports model, image and shader file changes on its Changes channel. The
// renderer drains that channel to invalidate accumulated frames when scene
// content changes underneath it.
type Watcher struct {
	assets map[string]assetInfo

	mutex sync.RWMutex

	done     chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
	changes  chan Change
}

func NewWatcher() (*Watcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		assets:   make(map[string]assetInfo),
		fsnotify: fsWatch,
		changes:  make(chan Change, 16),
		done:     make(chan struct{}),
	}, nil
}

// Watch starts watching the named directory and all sub-directories and
// launches the event loop.
func (w *Watcher) Watch(assetsDir string) error {
	if w.isClosed {
		return errors.New("watcher already closed")
	}
	go w.start()
	return w.watchRecursive(assetsDir, false)
}

// Changes delivers one entry per created or modified asset file.
func (w *Watcher) Changes() <-chan Change {
	return w.changes
}

// Known reports whether path is currently in the asset index.
func (w *Watcher) Known(path string) bool {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	_, ok := w.assets[path]
	return ok
}

func (w *Watcher) Close() {
	if w.isClosed {
		return
	}
	w.isClosed = true
	close(w.done)
}

func (w *Watcher) start() {
	for {
		select {
		case e := <-w.fsnotify.Events:
			s, err := os.Stat(e.Name)
			if err == nil && s != nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					w.watchRecursive(e.Name, false)
				}
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.handleFileEvent(e.Name, true)
			}
			// A deleted entry may have been a watched directory; removal of
			// an unwatched path is harmless.
			if e.Op&fsnotify.Remove != 0 {
				w.removeAsset(e.Name)
				w.fsnotify.Remove(e.Name)
			}

		case e := <-w.fsnotify.Errors:
			core.LogError(e.Error())

		case <-w.done:
			w.fsnotify.Close()
			close(w.changes)
			return
		}
	}
}

// watchRecursive adds (or removes) every directory under path to the watch
// list and indexes the files already present without emitting changes.
func (w *Watcher) watchRecursive(path string, unWatch bool) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if unWatch {
				return w.fsnotify.Remove(walkPath)
			}
			return w.fsnotify.Add(walkPath)
		}
		w.handleFileEvent(walkPath, false)
		return nil
	})
}

func (w *Watcher) handleFileEvent(path string, notify bool) {
	kind := classify(path)
	if kind == AssetKindNone {
		return
	}

	w.mutex.Lock()
	w.assets[path] = assetInfo{path: path, kind: kind, lastSeen: time.Now()}
	w.mutex.Unlock()

	if !notify {
		return
	}
	select {
	case w.changes <- Change{Path: path, Kind: kind}:
	default:
		core.LogWarn("asset change for %s dropped, channel full", path)
	}
}

func (w *Watcher) removeAsset(path string) {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	delete(w.assets, path)
}

func classify(path string) AssetKind {
	switch filepath.Ext(path) {
	case ".obj", ".mtl":
		return AssetKindModel
	case ".png", ".jpg", ".jpeg", ".bmp":
		return AssetKindImage
	case ".spv", ".vert", ".frag", ".rgen", ".rmiss", ".rchit", ".rint":
		return AssetKindShader
	default:
		return AssetKindNone
	}
}
