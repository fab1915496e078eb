package watch

import (
	"context"
	"sync"
)

// Change describes what happened inside a watched folder. When both Added
// and Removed are empty the listener should re-read the folder.
type Change struct {
	Folder  string `json:"folder"`
	Added   string `json:"added,omitempty"`
	Removed string `json:"removed,omitempty"`
}

// Refresh reports whether the change carries no names
func (c Change) Refresh() bool {
	return c.Added == "" && c.Removed == ""
}

// Listener receives folder changes. Listeners are matched by identity on
// unsubscribe, so implementations must be comparable; pointer types are.
type Listener interface {
	FolderChanged(Change)
}

// ListenerFunc adapts a function to Listener with pointer identity
type ListenerFunc struct {
	fn func(Change)
}

// Func wraps fn. Keep the returned pointer to unsubscribe later.
func Func(fn func(Change)) *ListenerFunc {
	return &ListenerFunc{fn: fn}
}

func (l *ListenerFunc) FolderChanged(c Change) {
	l.fn(c)
}

// ChannelListener queues changes for a consumer goroutine. Delivery never
// blocks the notifier: once the buffer is full further changes collapse
// into one pending refresh per folder.
type ChannelListener struct {
	ch   chan Change
	wake chan struct{}

	mu      sync.Mutex
	pending []string
}

// NewChannelListener creates a listener buffering up to size changes
func NewChannelListener(size int) *ChannelListener {
	if size < 1 {
		size = 1
	}
	return &ChannelListener{
		ch:   make(chan Change, size),
		wake: make(chan struct{}, 1),
	}
}

func (l *ChannelListener) FolderChanged(c Change) {
	select {
	case l.ch <- c:
		return
	default:
	}

	l.mu.Lock()
	if !contains(l.pending, c.Folder) {
		l.pending = append(l.pending, c.Folder)
	}
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Next blocks until a change is available or ctx ends. Buffered changes are
// returned before coalesced refreshes.
func (l *ChannelListener) Next(ctx context.Context) (Change, error) {
	for {
		select {
		case c := <-l.ch:
			return c, nil
		default:
		}

		if folder, ok := l.popPending(); ok {
			return Change{Folder: folder}, nil
		}

		select {
		case c := <-l.ch:
			return c, nil
		case <-l.wake:
		case <-ctx.Done():
			return Change{}, ctx.Err()
		}
	}
}

func (l *ChannelListener) popPending() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.pending) == 0 {
		return "", false
	}
	folder := l.pending[0]
	l.pending = l.pending[1:]
	return folder, true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
