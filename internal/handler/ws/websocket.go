package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/medassist/backend/internal/model/chat"
	chatservice "github.com/zhouzirui/medassist/backend/internal/service/chat"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 54 * time.Second
	writeWait    = 10 * time.Second
	eventBuffer  = 64
)

// Handler WebSocket聊天处理器
type Handler struct {
	chatSvc  *chatservice.Service
	upgrader websocket.Upgrader
}

// New 创建WebSocket处理器；origins 包含 "*" 时不校验来源
func New(chatSvc *chatservice.Service, origins []string) *Handler {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	_, allowAll := allowed["*"]

	return &Handler{
		chatSvc: chatSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if allowAll {
					return true
				}
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
}

// TextMessage 文本消息，type 为 "text" 时提交，"draft" 时仅更新草稿
type TextMessage struct {
	Text string `json:"text"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// conn 串行化写操作，gorilla 连接不支持并发写
type conn struct {
	ws        *websocket.Conn
	sessionID string
	mu        sync.Mutex
}

func (c *conn) send(kind string, data interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(outgoingMessage{
		Type:      kind,
		SessionID: c.sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}

func (c *conn) sendError(message string) {
	if err := c.send("error", map[string]string{"message": message}); err != nil {
		log.Printf("[websocket] write error failed: %v", err)
	}
}

func (c *conn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// handleWebSocket 处理WebSocket连接
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.chatSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	ctrl, err := h.chatSvc.Controller(sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer ws.Close()

	c := &conn{ws: ws, sessionID: sessionID}
	log.Printf("[websocket] new connection for session: %s", sessionID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events := make(chan chatservice.Event, eventBuffer)
	stop := ctrl.Watch(func(event chatservice.Event) {
		select {
		case events <- event:
		default:
			log.Printf("[websocket] session=%s subscriber lagging, event dropped", sessionID)
		}
	})
	defer stop()

	transcript := ctrl.Transcript()
	if err := c.send("snapshot", map[string]any{
		"session":    session,
		"busy":       ctrl.Busy(),
		"draft":      ctrl.Draft(),
		"transcript": transcript,
	}); err != nil {
		log.Printf("[websocket] write snapshot failed: %v", err)
		return
	}

	go h.pushLoop(ctx, c, events, len(transcript))
	go h.pingLoop(ctx, c)

	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg inboundMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[websocket] read error: %v", err)
			}
			return
		}
		ws.SetReadDeadline(time.Now().Add(pongWait))

		if msg.SessionID != "" && msg.SessionID != sessionID {
			c.sendError("session mismatch")
			continue
		}
		h.handleMessage(c, ctrl, &msg)
	}
}

func (h *Handler) handleMessage(c *conn, ctrl *chatservice.Controller, msg *inboundMessage) {
	switch msg.Type {
	case "text", "draft":
	default:
		c.sendError("unsupported message type: " + msg.Type)
		return
	}

	var text TextMessage
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &text); err != nil {
			c.sendError("invalid text payload")
			return
		}
	}

	if msg.Type == "draft" {
		ctrl.SetDraft(text.Text)
		return
	}

	_, result := ctrl.Submit(text.Text)
	if result == chatservice.SubmitClosed {
		c.sendError("session closed")
		return
	}
	if err := c.send("result", map[string]string{"result": result.String()}); err != nil {
		log.Printf("[websocket] write result failed: %v", err)
	}
}

// pushLoop 将会话事件转发给客户端
func (h *Handler) pushLoop(ctx context.Context, c *conn, events <-chan chatservice.Event, seen int) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-events:
			var err error
			switch event.Kind {
			case chatservice.EventTurn:
				if event.Index < seen {
					continue
				}
				seen = event.Index + 1
				err = c.send("turn", struct {
					Index int       `json:"index"`
					Turn  chat.Turn `json:"turn"`
				}{event.Index, event.Turn})
			case chatservice.EventBusy:
				err = c.send("busy", map[string]bool{"busy": event.Busy})
			}
			if err != nil {
				log.Printf("[websocket] push failed session=%s: %v", c.sessionID, err)
				return
			}
		}
	}
}

// pingLoop 定期发送ping消息
func (h *Handler) pingLoop(ctx context.Context, c *conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}
