package chat

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/zhouzirui/medassist/backend/internal/model/chat"
	"github.com/zhouzirui/medassist/backend/internal/model/genai"
	"github.com/zhouzirui/medassist/backend/internal/service/ai"
)

// Gateway sends one composed request to the model endpoint.
type Gateway interface {
	Send(ctx context.Context, req *genai.GenerateContentRequest) (*genai.GenerateContentResponse, error)
}

// SubmitResult tells the caller what happened to a submission.
type SubmitResult int

const (
	SubmitAccepted SubmitResult = iota
	// SubmitIgnored: the text was empty after trimming.
	SubmitIgnored
	// SubmitDropped: a call was already outstanding. Nothing is queued.
	SubmitDropped
	// SubmitClosed: the session has ended.
	SubmitClosed
)

func (r SubmitResult) String() string {
	switch r {
	case SubmitAccepted:
		return "accepted"
	case SubmitIgnored:
		return "ignored"
	case SubmitDropped:
		return "dropped"
	case SubmitClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// EventKind distinguishes controller notifications.
type EventKind string

const (
	EventTurn EventKind = "turn"
	EventBusy EventKind = "busy"
)

// Event is delivered to controller watchers.
type Event struct {
	Kind  EventKind
	Index int
	Turn  chat.Turn
	Busy  bool
}

// ControllerConfig wires a Controller.
type ControllerConfig struct {
	SessionID string
	Preamble  string
	Composer  ai.Composer
	Gateway   Gateway
}

// Controller runs the Idle -> Submitting -> Idle cycle for one session.
type Controller struct {
	sessionID  string
	preamble   string
	composer   ai.Composer
	gateway    Gateway
	transcript *Transcript

	mu     sync.Mutex
	busy   bool
	closed bool
	draft  string

	watchMu  sync.Mutex
	watchers map[int]func(Event)
	nextID   int

	inflight sync.WaitGroup
}

// NewController creates an idle controller with an empty transcript.
func NewController(cfg ControllerConfig) *Controller {
	return &Controller{
		sessionID:  cfg.SessionID,
		preamble:   cfg.Preamble,
		composer:   cfg.Composer,
		gateway:    cfg.Gateway,
		transcript: NewTranscript(),
		watchers:   make(map[int]func(Event)),
	}
}

// Submit accepts text when the session is idle. The returned channel yields the
// assistant turn once it has been appended, or is closed empty when the session
// ends first; it is nil unless the result is SubmitAccepted.
func (c *Controller) Submit(text string) (<-chan chat.Turn, SubmitResult) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, SubmitIgnored
	}

	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return nil, SubmitClosed
	case c.busy:
		c.mu.Unlock()
		return nil, SubmitDropped
	}
	c.busy = true
	c.draft = ""
	history := c.transcript.All()
	c.inflight.Add(1)
	c.mu.Unlock()

	c.transcript.Append(chat.UserTurn(trimmed))
	c.emit(Event{Kind: EventBusy, Busy: true})

	reply := make(chan chat.Turn, 1)
	go c.run(history, trimmed, reply)
	return reply, SubmitAccepted
}

func (c *Controller) run(history []chat.Turn, text string, reply chan<- chat.Turn) {
	defer c.inflight.Done()
	defer close(reply)

	turn := c.respond(history, text)

	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()

	if closed {
		log.Printf("[chat] session=%s closed before reply landed, discarding", c.sessionID)
		return
	}

	c.transcript.Append(turn)

	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
	c.emit(Event{Kind: EventBusy, Busy: false})

	reply <- turn
}

func (c *Controller) respond(history []chat.Turn, text string) chat.Turn {
	req, err := c.composer.Compose(c.preamble, history, text)
	if err != nil {
		log.Printf("[chat] session=%s compose failed: %v", c.sessionID, err)
		return ai.Interpret(nil, err)
	}

	resp, err := c.gateway.Send(context.Background(), req)
	if cause := ai.AsError(resp, err); cause != nil {
		log.Printf("[chat] session=%s reply outcome=%s: %v", c.sessionID, ai.Classify(resp, err), cause)
	}
	return ai.Interpret(resp, err)
}

// Busy reports whether a remote call is outstanding.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Closed reports whether the session has ended.
func (c *Controller) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Draft returns the pending, unsubmitted input.
func (c *Controller) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// SetDraft records the pending input. Accepted submissions clear it.
func (c *Controller) SetDraft(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.draft = text
	}
}

// Transcript returns a copy of the turns in arrival order.
func (c *Controller) Transcript() []chat.Turn {
	return c.transcript.All()
}

// Len returns the transcript length.
func (c *Controller) Len() int {
	return c.transcript.Len()
}

// Seed appends a turn outside the submit cycle, used for the greeting.
func (c *Controller) Seed(turn chat.Turn) {
	c.transcript.Append(turn)
}

// Watch registers fn for turn and busy-state events. The returned func unregisters it.
// Watching a closed controller registers nothing.
func (c *Controller) Watch(fn func(Event)) func() {
	if c.Closed() {
		return func() {}
	}

	stopTurns := c.transcript.Watch(func(change Change) {
		fn(Event{Kind: EventTurn, Index: change.Index, Turn: change.Turn})
	})

	c.watchMu.Lock()
	id := c.nextID
	c.nextID++
	c.watchers[id] = fn
	c.watchMu.Unlock()

	// Close may have run since the check above.
	if c.Closed() {
		stopTurns()
		c.watchMu.Lock()
		delete(c.watchers, id)
		c.watchMu.Unlock()
		return func() {}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			stopTurns()
			c.watchMu.Lock()
			delete(c.watchers, id)
			c.watchMu.Unlock()
		})
	}
}

func (c *Controller) emit(event Event) {
	c.watchMu.Lock()
	watchers := make([]func(Event), 0, len(c.watchers))
	for _, fn := range c.watchers {
		watchers = append(watchers, fn)
	}
	c.watchMu.Unlock()

	for _, fn := range watchers {
		fn(event)
	}
}

// Close ends the session: the transcript and state are dropped and watchers
// released. An outstanding call is left to finish and its reply discarded.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.busy = false
	c.draft = ""
	c.mu.Unlock()

	c.transcript.teardown()

	c.watchMu.Lock()
	c.watchers = make(map[int]func(Event))
	c.watchMu.Unlock()
}

// Wait blocks until any outstanding call has finished.
func (c *Controller) Wait() {
	c.inflight.Wait()
}
