package stream

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/medassist/backend/internal/model/chat"
	chatService "github.com/zhouzirui/medassist/backend/internal/service/chat"
	"github.com/zhouzirui/medassist/backend/pkg/utils"
)

const (
	defaultKeepalive = 15 * time.Second
	eventBuffer      = 64
)

// Handler pushes session events to browsers over Server-Sent Events.
type Handler struct {
	chatSvc   *chatService.Service
	keepalive time.Duration
}

// New creates a new stream handler
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc, keepalive: defaultKeepalive}
}

// RegisterRoutes mounts the stream endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stream/{sessionID}", h.handleStream)
}

// SnapshotPayload is the first event on every stream.
type SnapshotPayload struct {
	Session    chat.Session `json:"session"`
	Busy       bool         `json:"busy"`
	Transcript []chat.Turn  `json:"transcript"`
}

// TurnPayload carries one appended turn.
type TurnPayload struct {
	Index int       `json:"index"`
	Turn  chat.Turn `json:"turn"`
}

// BusyPayload carries the typing indicator state.
type BusyPayload struct {
	Busy bool `json:"busy"`
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctx := r.Context()
	session, err := h.chatSvc.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, chatService.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusNotFound, "session not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	ctrl, err := h.chatSvc.Controller(sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	// Subscribe before the snapshot so no turn falls between the two.
	events := make(chan chatService.Event, eventBuffer)
	cancel := ctrl.Watch(func(event chatService.Event) {
		select {
		case events <- event:
		default:
			log.Printf("[stream] session=%s subscriber lagging, event dropped", sessionID)
		}
	})
	defer cancel()

	snapshot := SnapshotPayload{Session: session, Busy: ctrl.Busy(), Transcript: ctrl.Transcript()}
	seen := len(snapshot.Transcript)

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	if err := utils.SendSSEEvent(w, flusher, "snapshot", snapshot); err != nil {
		log.Printf("[stream] session=%s snapshot failed: %v", sessionID, err)
		return
	}
	log.Printf("[stream] opened session=%s turns=%d", sessionID, seen)

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[stream] closed session=%s", sessionID)
			return
		case event := <-events:
			if err := h.forward(w, flusher, event, &seen); err != nil {
				log.Printf("[stream] session=%s write failed: %v", sessionID, err)
				return
			}
		case <-ticker.C:
			if ctrl.Closed() {
				_ = utils.SendSSEEvent(w, flusher, "closed", map[string]string{"sessionId": sessionID})
				return
			}
			if err := utils.SendSSEComment(w, flusher, "keepalive"); err != nil {
				return
			}
		}
	}
}

func (h *Handler) forward(w http.ResponseWriter, flusher http.Flusher, event chatService.Event, seen *int) error {
	switch event.Kind {
	case chatService.EventTurn:
		if event.Index < *seen {
			return nil
		}
		*seen = event.Index + 1
		return utils.SendSSEEvent(w, flusher, "turn", TurnPayload{Index: event.Index, Turn: event.Turn})
	case chatService.EventBusy:
		return utils.SendSSEEvent(w, flusher, "busy", BusyPayload{Busy: event.Busy})
	}
	return nil
}
