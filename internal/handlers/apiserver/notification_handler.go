package apiserver

import (
	"net/http"

	"social-go/internal/models"
	"social-go/internal/services"
)

type NotificationHandler struct {
	notificationService services.NotificationService
}

func NewNotificationHandler(ns services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: ns}
}

type markReadRequest struct {
	IDs []uint `json:"ids"` // 为空表示全部标记为已读
}

// List handles GET /api/notifications?unread=true&limit=
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := currentUser(w, r)
	if !ok {
		return
	}
	unreadOnly := r.URL.Query().Get("unread") == "true"
	items, err := h.notificationService.List(r.Context(), id.UserID, unreadOnly, queryInt(r, "limit", 0))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []*models.NotificationView{}
	}
	writeSuccess(w, http.StatusOK, items, "")
}

// MarkRead handles POST /api/notifications/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req markReadRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	n, err := h.notificationService.MarkRead(r.Context(), id.UserID, req.IDs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]int64{"updated": n}, "")
}
