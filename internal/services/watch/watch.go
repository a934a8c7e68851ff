// Package watch re-runs an action when files below a directory change.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/TwoAbove/lc/internal/utils"
)

// DefaultDebounce is the quiet period after the last event before the action runs.
const DefaultDebounce = 600 * time.Millisecond

const (
	watchAddFailedMessage     = "watch add failed"
	watcherErrorMessage       = "watcher error"
	changeActionFailedMessage = "change action failed"
	changeDetectedMessage     = "change detected"
)

var errNotStarted = errors.New("watch service not started")

// Filter reports whether a path should be watched and its events acted upon.
type Filter func(absolutePath string, isDirectory bool) bool

// Service watches a directory tree and coalesces bursts of events into single
// runs of an action.
type Service struct {
	Root     string
	Debounce time.Duration
	Filter   Filter
	Logger   *zap.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	paths   map[string]struct{}
}

// NewService constructs a Service for root with the default debounce.
func NewService(root string, filter Filter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		Root:     root,
		Debounce: DefaultDebounce,
		Filter:   filter,
		Logger:   logger,
	}
}

// Start creates the watcher and registers every directory below Root.
func (service *Service) Start() error {
	watcher, watcherError := fsnotify.NewWatcher()
	if watcherError != nil {
		return watcherError
	}
	if service.Logger == nil {
		service.Logger = zap.NewNop()
	}
	service.mu.Lock()
	service.watcher = watcher
	service.paths = make(map[string]struct{})
	service.mu.Unlock()
	service.addWatchTree(service.Root)
	return nil
}

// Stop closes the watcher.
func (service *Service) Stop() {
	service.mu.Lock()
	defer service.mu.Unlock()
	if service.watcher != nil {
		_ = service.watcher.Close()
		service.watcher = nil
	}
}

// Run blocks until ctx is done, invoking action once per burst of relevant
// events. Runs are sequential; events that arrive during a run schedule the next one.
// Action failures are logged and do not stop the loop.
func (service *Service) Run(ctx context.Context, action func(context.Context) error) error {
	service.mu.Lock()
	watcher := service.watcher
	service.mu.Unlock()
	if watcher == nil {
		return errNotStarted
	}

	debounce := service.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !service.isRelevant(event) {
				continue
			}
			service.Logger.Debug(changeDetectedMessage, zap.String("path", event.Name), zap.String("op", event.Op.String()))
			timer.Reset(debounce)
		case watchError, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			service.Logger.Warn(watcherErrorMessage, zap.Error(watchError))
		case <-timer.C:
			if actionError := action(ctx); actionError != nil {
				service.Logger.Error(changeActionFailedMessage, zap.Error(actionError))
			}
		}
	}
}

func (service *Service) isRelevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	if service.insideVersionControl(event.Name) {
		return false
	}
	isDirectory := false
	if info, statError := os.Stat(event.Name); statError == nil {
		isDirectory = info.IsDir()
	}
	if service.Filter != nil && !service.Filter(event.Name, isDirectory) {
		return false
	}
	if event.Op&fsnotify.Create != 0 && isDirectory {
		service.addWatchTree(event.Name)
	}
	return true
}

func (service *Service) insideVersionControl(path string) bool {
	relativePath := filepath.ToSlash(utils.RelativePathOrSelf(path, service.Root))
	for _, segment := range strings.Split(relativePath, "/") {
		if utils.IsVersionControlDirectory(segment) {
			return true
		}
	}
	return false
}

func (service *Service) addWatchDir(path string) {
	service.mu.Lock()
	defer service.mu.Unlock()
	if service.watcher == nil {
		return
	}
	if _, watched := service.paths[path]; watched {
		return
	}
	if addError := service.watcher.Add(path); addError != nil {
		service.Logger.Debug(watchAddFailedMessage, zap.String("path", path), zap.Error(addError))
		return
	}
	service.paths[path] = struct{}{}
}

func (service *Service) addWatchTree(root string) {
	_ = filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkError error) error {
		if walkError != nil || !entry.IsDir() {
			return nil
		}
		if path != root && utils.IsVersionControlDirectory(entry.Name()) {
			return filepath.SkipDir
		}
		if path != service.Root && service.Filter != nil && !service.Filter(path, true) {
			return filepath.SkipDir
		}
		service.addWatchDir(path)
		return nil
	})
}
