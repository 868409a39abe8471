package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/ivoirehub/hubsync/internal/db"
	"github.com/ivoirehub/hubsync/internal/notify"
)

// defaultListLimit is the page size used when the client does not ask for
// one.
const defaultListLimit = 50

// errorResponse is the JSON error envelope returned by the API.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// writeJSON writes v as a JSON response with the given status.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("Failed to encode response", "err", err)
	}
}

// writeError writes a JSON error envelope.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

// handleListNotifications serves GET /api/v1/notifications.
func (s *Server) handleListNotifications(w http.ResponseWriter,
	r *http.Request) {

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		s.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	list, err := s.store.ListNotifications(r.Context(), userID, limit)
	if err != nil {
		s.log.Error("Failed to list notifications", "err", err)
		s.writeError(w, http.StatusInternalServerError,
			"failed to list notifications")
		return
	}

	unread, err := s.store.CountUnread(r.Context(), userID)
	if err != nil {
		s.log.Error("Failed to count unread", "err", err)
		s.writeError(w, http.StatusInternalServerError,
			"failed to count unread")
		return
	}

	if list == nil {
		list = []notify.Notification{}
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"notifications": list,
		"unread_count":  unread,
	})
}

// createNotificationRequest is the body of POST /api/v1/notifications.
type createNotificationRequest struct {
	UserID   string            `json:"user_id"`
	Type     notify.Type       `json:"type"`
	Title    string            `json:"title"`
	Message  string            `json:"message"`
	Link     string            `json:"link,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// handleCreateNotification serves POST /api/v1/notifications. The new row
// is persisted, then fanned out to live feed subscribers.
func (s *Server) handleCreateNotification(w http.ResponseWriter,
	r *http.Request) {

	var req createNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.UserID == "" || req.Title == "" {
		s.writeError(w, http.StatusBadRequest,
			"user_id and title are required")
		return
	}
	if !req.Type.Valid() {
		s.writeError(w, http.StatusBadRequest,
			"unknown notification type")
		return
	}

	n := notify.Notification{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		Type:      req.Type,
		Title:     req.Title,
		Message:   req.Message,
		Link:      req.Link,
		Metadata:  req.Metadata,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.store.InsertNotification(r.Context(), n); err != nil {
		s.log.Error("Failed to insert notification", "err", err)
		s.writeError(w, http.StatusInternalServerError,
			"failed to insert notification")
		return
	}

	// Fan out to live subscribers after the row is durable.
	delivered := s.registry.Notify(n)
	s.log.Info("Notification created", "id", n.ID, "user_id", n.UserID,
		"type", n.Type, "delivered", delivered)

	s.writeJSON(w, http.StatusCreated, n)
}

// markReadRequest is the body of POST /api/v1/notifications/read.
type markReadRequest struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
}

// handleMarkRead serves POST /api/v1/notifications/read.
func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	var req markReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ID == "" || req.UserID == "" {
		s.writeError(w, http.StatusBadRequest,
			"id and user_id are required")
		return
	}

	err := s.store.MarkNotificationRead(r.Context(), req.ID, req.UserID)
	switch {
	case errors.Is(err, db.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "notification not found")
		return
	case err != nil:
		s.log.Error("Failed to mark read", "err", err)
		s.writeError(w, http.StatusInternalServerError,
			"failed to mark read")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// markAllReadRequest is the body of POST /api/v1/notifications/read-all.
type markAllReadRequest struct {
	UserID string `json:"user_id"`
}

// handleMarkAllRead serves POST /api/v1/notifications/read-all.
func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	var req markAllReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.UserID == "" {
		s.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	err := s.store.MarkAllNotificationsRead(r.Context(), req.UserID)
	if err != nil {
		s.log.Error("Failed to mark all read", "err", err)
		s.writeError(w, http.StatusInternalServerError,
			"failed to mark all read")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
