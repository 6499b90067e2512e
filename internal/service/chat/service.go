package chat

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/medassist/backend/internal/model/chat"
	"github.com/zhouzirui/medassist/backend/internal/model/persona"
	"github.com/zhouzirui/medassist/backend/internal/service/ai"
)

var (
	ErrPersonaNotFound = errors.New("persona not found")
	ErrSessionNotFound = errors.New("session not found")
)

// TurnSink receives every appended turn, e.g. to publish it elsewhere.
type TurnSink interface {
	PublishTurn(ctx context.Context, sessionID string, index int, turn chat.Turn) error
}

// Option customises a Service.
type Option func(*Service)

// WithTurnSink forwards every appended turn of every session to sink.
func WithTurnSink(sink TurnSink) Option {
	return func(s *Service) {
		s.sink = sink
	}
}

type entry struct {
	session    chat.Session
	controller *Controller
}

// Service owns the live chat sessions. Each session has its own controller and
// transcript; nothing is shared between sessions.
type Service struct {
	personas persona.Store
	gateway  Gateway
	composer ai.Composer
	sink     TurnSink

	mu       sync.RWMutex
	sessions map[string]*entry
}

// NewService bootstraps the in-memory session registry.
func NewService(personas persona.Store, gateway Gateway, composer ai.Composer, opts ...Option) *Service {
	s := &Service{
		personas: personas,
		gateway:  gateway,
		composer: composer,
		sessions: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession opens a session bound to a persona and seeds its greeting.
// An empty personaID selects the default persona.
func (s *Service) CreateSession(_ context.Context, personaID string) (chat.Session, error) {
	if personaID == "" {
		personaID = persona.DefaultID
	}

	p, ok := s.personas.FindByID(personaID)
	if !ok {
		return chat.Session{}, ErrPersonaNotFound
	}

	session := chat.Session{
		ID:        uuid.NewString(),
		PersonaID: p.ID,
		CreatedAt: time.Now().UTC(),
	}

	controller := NewController(ControllerConfig{
		SessionID: session.ID,
		Preamble:  p.Preamble,
		Composer:  s.composer,
		Gateway:   s.gateway,
	})

	if s.sink != nil {
		sink := s.sink
		controller.Watch(func(event Event) {
			if event.Kind != EventTurn {
				return
			}
			if err := sink.PublishTurn(context.Background(), session.ID, event.Index, event.Turn); err != nil {
				log.Printf("[chat] publish turn failed session=%s index=%d: %v", session.ID, event.Index, err)
			}
		})
	}

	if p.OpeningLine != "" {
		controller.Seed(chat.AssistantTurn(p.OpeningLine))
	}

	s.mu.Lock()
	s.sessions[session.ID] = &entry{session: session, controller: controller}
	s.mu.Unlock()

	log.Printf("[chat] session opened id=%s persona=%s", session.ID, p.ID)
	return session, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return chat.Session{}, err
	}
	return e.session, nil
}

// Controller returns the state machine behind a session.
func (s *Service) Controller(sessionID string) (*Controller, error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return e.controller, nil
}

// Submit forwards text to the session's controller.
func (s *Service) Submit(_ context.Context, sessionID, text string) (<-chan chat.Turn, SubmitResult, error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return nil, SubmitClosed, err
	}
	reply, result := e.controller.Submit(text)
	return reply, result, nil
}

// LoadTranscript returns the turns of a session in arrival order.
func (s *Service) LoadTranscript(_ context.Context, sessionID string) ([]chat.Turn, error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return e.controller.Transcript(), nil
}

// Busy reports whether a session has a call outstanding.
func (s *Service) Busy(_ context.Context, sessionID string) (bool, error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return false, err
	}
	return e.controller.Busy(), nil
}

// Watch subscribes fn to a session's events.
func (s *Service) Watch(sessionID string, fn func(Event)) (func(), error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return e.controller.Watch(fn), nil
}

// CloseSession ends a session and forgets it.
func (s *Service) CloseSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	e, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}

	e.controller.Close()
	log.Printf("[chat] session closed id=%s", sessionID)
	return nil
}

// Shutdown closes every session and waits for outstanding calls.
func (s *Service) Shutdown() {
	s.mu.Lock()
	entries := make([]*entry, 0, len(s.sessions))
	for id, e := range s.sessions {
		entries = append(entries, e)
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	for _, e := range entries {
		e.controller.Close()
	}
	for _, e := range entries {
		e.controller.Wait()
	}
}

func (s *Service) lookup(sessionID string) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e, nil
}
