package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/RichardoC/dehost/internal/db"
	"github.com/RichardoC/dehost/internal/deploy"
	"github.com/RichardoC/dehost/internal/domainlink"
	"github.com/RichardoC/dehost/internal/llm"
	"github.com/RichardoC/dehost/internal/models"
	"github.com/RichardoC/dehost/internal/ui"
)

const messagesPageSize = 50

// ChatService answers a saved user message.
type ChatService interface {
	ProcessMessage(ctx context.Context, msg models.Message, sink llm.Sink) (*models.Message, error)
}

type Handler struct {
	db        *db.Database
	llm       ChatService
	deployer  *deploy.Action
	sharer    *deploy.Sharer
	store     *ui.Store
	renderer  *ui.Renderer
	registrar domainlink.Registrar
	logger    *zap.Logger

	historyLimit int
	upgrader     websocket.Upgrader
	loader       ui.Loader
}

type Deps struct {
	DB        *db.Database
	LLM       ChatService
	Deployer  *deploy.Action
	Sharer    *deploy.Sharer
	Store     *ui.Store
	Renderer  *ui.Renderer
	Registrar domainlink.Registrar
	Logger    *zap.Logger
	// HistoryLimit caps GET /api/deployments.
	HistoryLimit int
	// LoadingInterval paces loading frames on the event stream.
	LoadingInterval time.Duration
}

func NewHandler(d Deps) *Handler {
	h := &Handler{
		db:        d.DB,
		llm:       d.LLM,
		deployer:  d.Deployer,
		sharer:    d.Sharer,
		store:     d.Store,
		renderer:  d.Renderer,
		registrar: d.Registrar,
		logger:    d.Logger,

		historyLimit: d.HistoryLimit,
		loader:       ui.Loader{Interval: d.LoadingInterval},
	}
	if h.historyLimit <= 0 {
		h.historyLimit = defaultDeploymentsLimit
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	if h.renderer == nil {
		h.renderer = ui.NewRenderer()
	}
	if h.registrar == nil {
		h.registrar = domainlink.LogRegistrar{Logger: h.logger}
	}
	return h
}

type MessageRequest struct {
	Content string `json:"content"`
}

type MessageResponse struct {
	Message *models.Message `json:"message"`
}

type CreateConversationRequest struct {
	Title string `json:"title"`
}

type UpdateConversationRequest struct {
	Title string `json:"title"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, msg string) {
	h.writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

func conversationID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid conversation ID")
	}
	return id, nil
}

func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	convID, err := conversationID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "", "Invalid conversation ID")
		return
	}

	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		h.writeError(w, http.StatusBadRequest, "", "Invalid request body")
		return
	}

	userMsg := &models.Message{
		ConvID:  convID,
		Role:    models.RoleUser,
		Content: req.Content,
	}
	if err := h.db.SaveMessage(userMsg); err != nil {
		h.logger.Error("Failed to save user message", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "", "Failed to save message")
		return
	}
	h.store.SetStarted(true)

	response, err := h.llm.ProcessMessage(r.Context(), *userMsg, func(chunk string) {
		h.store.Stream(ui.Chunk{ConversationID: convID, Content: chunk})
	})
	h.store.Stream(ui.Chunk{ConversationID: convID, Done: true})
	if err != nil {
		h.logger.Error("Failed to process message", zap.Int64("conversation_id", convID), zap.Error(err))
		h.writeError(w, http.StatusBadGateway, "", "Failed to process message")
		return
	}

	h.writeJSON(w, http.StatusOK, MessageResponse{Message: response})
}

func (h *Handler) GetConversations(w http.ResponseWriter, r *http.Request) {
	conversations, err := h.db.GetConversations()
	if err != nil {
		h.logger.Error("Failed to get conversations",
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path))
		h.writeError(w, http.StatusInternalServerError, "", "Internal server error")
		return
	}

	h.logger.Debug("Retrieved conversations",
		zap.Int("count", len(conversations)),
		zap.String("path", r.URL.Path))

	h.writeJSON(w, http.StatusOK, conversations)
}

func (h *Handler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	var req CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "", "Invalid request body")
		return
	}
	if req.Title == "" {
		req.Title = "New chat"
	}

	conversation, err := h.db.CreateConversation(req.Title)
	if err != nil {
		h.logger.Error("Failed to create conversation", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "", "Internal server error")
		return
	}

	h.writeJSON(w, http.StatusCreated, conversation)
}

func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	convID, err := conversationID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "", "Invalid conversation ID")
		return
	}

	messages, err := h.db.GetConversationHistory(convID, messagesPageSize)
	if err != nil {
		h.logger.Error("Failed to get messages", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "", "Internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, messages)
}

// GetView returns the conversation rendered for the message list.
func (h *Handler) GetView(w http.ResponseWriter, r *http.Request) {
	convID, err := conversationID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "", "Invalid conversation ID")
		return
	}
	streaming := r.URL.Query().Get("streaming") == "true"

	messages, err := h.db.GetMessages(convID)
	if err != nil {
		h.logger.Error("Failed to get messages", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "", "Internal server error")
		return
	}

	list, err := h.renderer.List(messages, streaming)
	if err != nil {
		h.logger.Error("Failed to render messages", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "", "Internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, list)
}

func (h *Handler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	convID, err := conversationID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "", "Invalid conversation ID")
		return
	}

	if err := h.db.DeleteConversation(convID); err != nil {
		h.logger.Error("Failed to delete conversation", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "", "Internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) UpdateConversation(w http.ResponseWriter, r *http.Request) {
	convID, err := conversationID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "", "Invalid conversation ID")
		return
	}

	var req UpdateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "", "Invalid request body")
		return
	}

	if err := h.db.UpdateConversationTitle(convID, req.Title); err != nil {
		h.logger.Error("Failed to update conversation", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "", "Internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
