// Package paste records which entries the user last copied or cut.
//
// Every selection replaces the previous one wholesale; the tracker never
// touches storage.
package paste

import (
	"fmt"
	"sync"

	"github.com/GriffinCanCode/AgentOS/deskfs/internal/shared/paths"
)

// Kind is the pending clipboard operation for a path
type Kind int

const (
	None Kind = iota
	Copy
	Move
)

func (k Kind) String() string {
	switch k {
	case Copy:
		return "copy"
	case Move:
		return "move"
	default:
		return "none"
	}
}

// ParseKind is the inverse of Kind.String
func ParseKind(s string) (Kind, error) {
	switch s {
	case "copy":
		return Copy, nil
	case "move":
		return Move, nil
	case "none", "":
		return None, nil
	}
	return None, fmt.Errorf("unknown paste kind %q", s)
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Tracker holds the current paste intent
type Tracker struct {
	mu      sync.RWMutex
	intents map[string]Kind
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{intents: make(map[string]Kind)}
}

// SetIntent replaces the whole intent with kind for each of entries.
// Setting None clears it.
func (t *Tracker) SetIntent(entries []string, kind Kind) {
	intents := make(map[string]Kind, len(entries))
	if kind != None {
		for _, p := range entries {
			intents[paths.Clean(p)] = kind
		}
	}

	t.mu.Lock()
	t.intents = intents
	t.mu.Unlock()
}

// Copy marks entries to be copied on the next paste
func (t *Tracker) Copy(entries []string) {
	t.SetIntent(entries, Copy)
}

// Move marks entries to be moved on the next paste
func (t *Tracker) Move(entries []string) {
	t.SetIntent(entries, Move)
}

// IntentFor returns the pending kind for path
func (t *Tracker) IntentFor(path string) Kind {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.intents[paths.Clean(path)]
}

// Snapshot returns a copy of the current intent
func (t *Tracker) Snapshot() map[string]Kind {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]Kind, len(t.intents))
	for p, k := range t.intents {
		out[p] = k
	}
	return out
}
