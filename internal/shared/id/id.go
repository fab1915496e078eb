// Package id generates prefixed, time-sortable ULIDs for deskfs.
//
// Subscriptions on the watch stream and HTTP requests carry ids of this
// form ("sub_01H...", "req_01H...") so log lines can be correlated and
// ordered without a separate timestamp.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// SubscriptionID identifies one folder subscription on a watch stream
type SubscriptionID string

// RequestID identifies an API request
type RequestID string

const (
	SubscriptionPrefix = "sub"
	RequestPrefix      = "req"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	mu      sync.Mutex
	entropy io.Reader
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator whose ids are strictly increasing within
// the same millisecond
func NewGenerator() *Generator {
	return &Generator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.mu.Lock()
	defer g.mu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewSubscriptionID generates a new subscription ID
func NewSubscriptionID() SubscriptionID {
	return SubscriptionID(Default().GenerateWithPrefix(SubscriptionPrefix))
}

// NewRequestID generates a new request ID
func NewRequestID() RequestID {
	return RequestID(Default().GenerateWithPrefix(RequestPrefix))
}

func (id SubscriptionID) String() string { return string(id) }
func (id RequestID) String() string      { return string(id) }
