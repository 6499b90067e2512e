package chat

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/medassist/backend/internal/model/chat"
	chatService "github.com/zhouzirui/medassist/backend/internal/service/chat"
	"github.com/zhouzirui/medassist/backend/pkg/utils"
)

// Handler 聊天会话的HTTP处理器
type Handler struct {
	chatSvc *chatService.Service
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleCreateSession)
	r.Route("/session/{sessionID}", func(r chi.Router) {
		r.Get("/", h.handleGetSession)
		r.Delete("/", h.handleCloseSession)
		r.Post("/messages", h.handleSubmit)
	})
}

type sessionView struct {
	Session    chat.Session `json:"session"`
	Busy       bool         `json:"busy"`
	Transcript []chat.Turn  `json:"transcript"`
}

type submitView struct {
	Result string     `json:"result"`
	Reply  *chat.Turn `json:"reply,omitempty"`
}

// handleCreateSession 创建会话，personaId 可省略
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PersonaID string `json:"personaId"`
	}

	if err := utils.DecodeJSON(r, &payload, true); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.chatSvc.CreateSession(r.Context(), payload.PersonaID)
	if err != nil {
		if errors.Is(err, chatService.ErrPersonaNotFound) {
			utils.RespondError(w, http.StatusBadRequest, "persona not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	transcript, err := h.chatSvc.LoadTranscript(r.Context(), session.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, sessionView{Session: session, Transcript: transcript})
}

// handleGetSession 返回会话、忙碌状态与完整记录
func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.chatSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	busy, err := h.chatSvc.Busy(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	transcript, err := h.chatSvc.LoadTranscript(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, sessionView{Session: session, Busy: busy, Transcript: transcript})
}

// handleSubmit 提交用户输入；wait=true 时等待助手回复
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var payload struct {
		Text string `json:"text"`
		Wait bool   `json:"wait"`
	}
	if err := utils.DecodeJSON(r, &payload, false); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, result, err := h.chatSvc.Submit(r.Context(), sessionID, payload.Text)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	switch result {
	case chatService.SubmitIgnored, chatService.SubmitDropped:
		utils.RespondJSON(w, http.StatusOK, submitView{Result: result.String()})
		return
	case chatService.SubmitClosed:
		utils.RespondError(w, http.StatusGone, "session closed")
		return
	}

	if !payload.Wait {
		utils.RespondJSON(w, http.StatusAccepted, submitView{Result: result.String()})
		return
	}

	select {
	case turn, ok := <-reply:
		if !ok {
			utils.RespondError(w, http.StatusGone, "session closed")
			return
		}
		utils.RespondJSON(w, http.StatusOK, submitView{Result: result.String(), Reply: &turn})
	case <-r.Context().Done():
		log.Printf("[chat] client left before reply session=%s", sessionID)
	}
}

// handleCloseSession 关闭会话
func (h *Handler) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.chatSvc.CloseSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatService.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, chatService.ErrPersonaNotFound):
		utils.RespondError(w, http.StatusBadRequest, "persona not found")
	default:
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
	}
}
