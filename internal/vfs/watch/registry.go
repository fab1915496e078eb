// Package watch keeps the folder to listener registry and routes change
// notifications.
//
// A notification for a folder nobody watches is turned into a refresh of
// its parent, one level up only. The root folder never bubbles.
package watch

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/deskfs/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/deskfs/internal/shared/paths"
)

// Delivery kinds recorded in metrics
const (
	KindRoot   = "root"
	KindExact  = "exact"
	KindBubble = "bubble"
	KindNone   = "none"
)

// Registry maps folders to ordered listener lists. A folder key exists only
// while it has at least one listener.
type Registry struct {
	mu        sync.RWMutex
	listeners map[string][]Listener

	keysChanged chan struct{}
	logger      *zap.Logger
	metrics     *monitoring.Metrics
}

// NewRegistry creates an empty registry. logger and metrics may be nil.
func NewRegistry(logger *zap.Logger, metrics *monitoring.Metrics) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		listeners:   make(map[string][]Listener),
		keysChanged: make(chan struct{}, 1),
		logger:      logger,
		metrics:     metrics,
	}
}

// Subscribe appends listener to folder's list
func (r *Registry) Subscribe(folder string, listener Listener) {
	folder = paths.Clean(folder)

	r.mu.Lock()
	_, existed := r.listeners[folder]
	r.listeners[folder] = append(r.listeners[folder], listener)
	count := len(r.listeners)
	r.mu.Unlock()

	if !existed {
		r.logger.Debug("Folder watched", zap.String("folder", folder))
		r.keysUpdated(count)
	}
}

// Unsubscribe removes the first occurrence of listener from folder's list
// and drops the key once the list is empty. It reports whether anything
// was removed.
func (r *Registry) Unsubscribe(folder string, listener Listener) bool {
	folder = paths.Clean(folder)

	r.mu.Lock()
	list := r.listeners[folder]
	idx := -1
	for i, l := range list {
		if l == listener {
			idx = i
			break
		}
	}
	if idx < 0 {
		r.mu.Unlock()
		return false
	}

	remaining := make([]Listener, 0, len(list)-1)
	remaining = append(remaining, list[:idx]...)
	remaining = append(remaining, list[idx+1:]...)

	dropped := len(remaining) == 0
	if dropped {
		delete(r.listeners, folder)
	} else {
		r.listeners[folder] = remaining
	}
	count := len(r.listeners)
	r.mu.Unlock()

	if dropped {
		r.logger.Debug("Folder unwatched", zap.String("folder", folder))
		r.keysUpdated(count)
	}
	return true
}

// Notify reports that added and/or removed changed inside folder.
//
// Root listeners always get the names. Otherwise the folder's own listeners
// get the names; when it has none, the parent's listeners get a refresh.
func (r *Registry) Notify(folder, added, removed string) {
	folder = paths.Clean(folder)

	r.mu.RLock()
	kind := KindExact
	change := Change{Folder: folder, Added: added, Removed: removed}
	targets := r.listeners[folder]

	if folder != paths.Root && len(targets) == 0 {
		parent := paths.Dir(folder)
		kind = KindBubble
		change = Change{Folder: parent}
		targets = r.listeners[parent]
	} else if folder == paths.Root {
		kind = KindRoot
	}
	// Lists are only appended to or replaced, so targets stays valid
	// after unlocking.
	r.mu.RUnlock()

	if len(targets) == 0 {
		kind = KindNone
	}
	r.metrics.RecordNotification(kind)

	for _, l := range targets {
		l.FolderChanged(change)
	}
}

// Folders returns the watched folders in sorted order
func (r *Registry) Folders() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	folders := make([]string, 0, len(r.listeners))
	for f := range r.listeners {
		folders = append(folders, f)
	}
	sort.Strings(folders)
	return folders
}

// Count returns the number of listeners on folder
func (r *Registry) Count(folder string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.listeners[paths.Clean(folder)])
}

// KeysChanged signals after the set of watched folders changes. Signals
// coalesce: several changes between receives yield one signal.
func (r *Registry) KeysChanged() <-chan struct{} {
	return r.keysChanged
}

func (r *Registry) keysUpdated(count int) {
	r.metrics.SetWatchedFolders(count)
	select {
	case r.keysChanged <- struct{}{}:
	default:
	}
}
