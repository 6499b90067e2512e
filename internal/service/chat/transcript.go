package chat

import (
	"sync"

	"github.com/zhouzirui/medassist/backend/internal/model/chat"
)

// Change is emitted after every append.
type Change struct {
	Index int
	Turn  chat.Turn
}

// Transcript is the append-only, ordered log of turns for one session.
type Transcript struct {
	// emitMu keeps append and notification order identical across goroutines.
	emitMu sync.Mutex

	mu       sync.RWMutex
	turns    []chat.Turn
	watchers map[int]func(Change)
	nextID   int
	closed   bool
}

// NewTranscript returns an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{
		turns:    make([]chat.Turn, 0, 16),
		watchers: make(map[int]func(Change)),
	}
}

// Append adds turn at the end and notifies watchers. It returns the turn index,
// or -1 when the transcript has been torn down. Watchers must not call Append.
func (t *Transcript) Append(turn chat.Turn) int {
	t.emitMu.Lock()
	defer t.emitMu.Unlock()

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return -1
	}
	t.turns = append(t.turns, turn)
	index := len(t.turns) - 1
	watchers := make([]func(Change), 0, len(t.watchers))
	for _, fn := range t.watchers {
		watchers = append(watchers, fn)
	}
	t.mu.Unlock()

	change := Change{Index: index, Turn: turn}
	for _, fn := range watchers {
		fn(change)
	}
	return index
}

// All returns a copy of the turns in arrival order.
func (t *Transcript) All() []chat.Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()

	copied := make([]chat.Turn, len(t.turns))
	copy(copied, t.turns)
	return copied
}

// Len returns the number of turns.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.turns)
}

// Watch registers fn for change notifications. The returned func unregisters it.
func (t *Transcript) Watch(fn func(Change)) func() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return func() {}
	}

	id := t.nextID
	t.nextID++
	t.watchers[id] = fn

	return func() {
		t.mu.Lock()
		delete(t.watchers, id)
		t.mu.Unlock()
	}
}

// teardown drops all turns and watchers; later appends are ignored.
func (t *Transcript) teardown() {
	t.emitMu.Lock()
	defer t.emitMu.Unlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.turns = nil
	t.watchers = make(map[int]func(Change))
}
