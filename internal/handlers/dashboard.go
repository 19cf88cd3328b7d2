package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/pliu/anonchat/internal/models"
	"github.com/pliu/anonchat/internal/stats"
	"github.com/pliu/anonchat/internal/store"
)

// DashboardHandler serves the read-only dashboard API.
type DashboardHandler struct {
	Stats *stats.Reporter
}

type conversationHistory struct {
	Conversation *models.Conversation         `json:"conversation"`
	Messages     []models.ConversationMessage `json:"messages"`
	Timestamp    time.Time                    `json:"timestamp"`
}

func (h *DashboardHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.Stats.Snapshot(r.Context())
	if err != nil {
		internalError(w, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (h *DashboardHandler) GetRecentActivity(w http.ResponseWriter, r *http.Request) {
	activity, err := h.Stats.RecentActivity(r.Context())
	if err != nil {
		internalError(w, "recent activity", err)
		return
	}
	writeJSON(w, http.StatusOK, activity)
}

func (h *DashboardHandler) GetConversations(w http.ResponseWriter, r *http.Request) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			http.Error(w, "Invalid page", http.StatusBadRequest)
			return
		}
		page = n
	}

	result, err := h.Stats.Conversations(r.Context(), page)
	if err != nil {
		internalError(w, "conversations", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *DashboardHandler) GetConversationMessages(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid conversation id", http.StatusBadRequest)
		return
	}

	conv, msgs, err := h.Stats.ConversationHistory(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Conversation not found", http.StatusNotFound)
		return
	}
	if err != nil {
		internalError(w, "conversation history", err)
		return
	}
	writeJSON(w, http.StatusOK, conversationHistory{
		Conversation: conv,
		Messages:     msgs,
		Timestamp:    time.Now().UTC(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[dashboard] encoding response failed: %v", err)
	}
}

func internalError(w http.ResponseWriter, what string, err error) {
	log.Printf("[dashboard] %s: %v", what, err)
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}
