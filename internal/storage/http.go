package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"

	"github.com/GriffinCanCode/AgentOS/deskfs/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/AgentOS/deskfs/internal/shared/paths"
)

// HTTPConfig configures a read-only tree served over HTTP
type HTTPConfig struct {
	BaseURL    string
	IndexPath  string
	Timeout    time.Duration
	RetryCount int
	// FailureThreshold consecutive failed fetches stop reads for Cooldown
	FailureThreshold int
	Cooldown         time.Duration
}

// HTTP is a read-only store backed by a static web root. The listing comes
// from a JSON index where directories are objects and files are null:
//
//	{"System": {"boot.ini": null, "Fonts": {}}}
//
// File bodies are fetched lazily and cached until Empty is called.
type HTTP struct {
	ReadOnly
	*Tree
	client  *resty.Client
	breaker *resilience.Breaker

	mu    sync.RWMutex
	cache map[string][]byte
}

// OpenHTTP fetches the index and builds the store
func OpenHTTP(ctx context.Context, cfg HTTPConfig) (*HTTP, error) {
	if cfg.IndexPath == "" {
		cfg.IndexPath = "/.index/fs.json"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount)

	resp, err := client.R().SetContext(ctx).Get(cfg.IndexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch index: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("failed to fetch index: %s", resp.Status())
	}

	var index map[string]interface{}
	if err := sonic.Unmarshal(resp.Body(), &index); err != nil {
		return nil, fmt.Errorf("failed to parse index: %w", err)
	}

	tree := NewTree()
	indexTree(tree, paths.Root, index)

	return &HTTP{
		Tree:   tree,
		client: client,
		breaker: resilience.New(cfg.BaseURL, resilience.Settings{
			FailureThreshold: cfg.FailureThreshold,
			Cooldown:         cfg.Cooldown,
			IsFailure:        isSourceFailure,
		}),
		cache: make(map[string][]byte),
	}, nil
}

func indexTree(tree *Tree, dir string, listing map[string]interface{}) {
	for name, child := range listing {
		if paths.ValidateName(name) != nil {
			continue
		}
		p := paths.Join(dir, name)
		if sub, ok := child.(map[string]interface{}); ok {
			tree.AddDir(p, time.Time{})
			indexTree(tree, p, sub)
			continue
		}
		tree.AddFile(p, 0, time.Time{}, nil)
	}
}

func (h *HTTP) ReadFile(ctx context.Context, path string) ([]byte, error) {
	path = paths.Clean(path)
	if _, err := h.Source(path); err != nil {
		return nil, err
	}

	h.mu.RLock()
	data, ok := h.cache[path]
	h.mu.RUnlock()
	if ok {
		return data, nil
	}

	err := h.breaker.Do(func() error {
		resp, err := h.client.R().SetContext(ctx).Get(escapePath(path))
		switch {
		case err != nil:
			return err
		case resp.StatusCode() == http.StatusNotFound:
			return ErrNotExist
		case resp.IsError():
			return fmt.Errorf("unexpected status %s", resp.Status())
		}
		data = resp.Body()
		return nil
	})
	if err != nil {
		return nil, opErr("read", path, err)
	}

	h.mu.Lock()
	h.cache[path] = data
	h.mu.Unlock()
	return data, nil
}

// Status reports the web root and its circuit breaker state
func (h *HTTP) Status() Status {
	return Status{Source: h.breaker.Name(), State: h.breaker.State().String()}
}

// Empty drops every cached file body
func (h *HTTP) Empty(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.cache = make(map[string][]byte)
	return nil
}

func (h *HTTP) cached() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.cache)
}

// isSourceFailure reports whether a fetch error means the web root is
// unhealthy rather than the caller asking for something absent
func isSourceFailure(err error) bool {
	return !errors.Is(err, ErrNotExist) && !errors.Is(err, context.Canceled)
}

func escapePath(path string) string {
	segments := paths.Segments(path)
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return "/" + strings.Join(segments, "/")
}
