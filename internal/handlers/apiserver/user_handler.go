package apiserver

import (
	"context"
	"net/http"

	"social-go/internal/models"
	"social-go/internal/services"
)

// UserHandler 封装了用户资料与关注关系的 HTTP 处理器方法。
type UserHandler struct {
	userService    services.UserService
	maxUploadBytes int64
}

// NewUserHandler 创建一个新的 UserHandler 实例。
func NewUserHandler(userService services.UserService, maxUploadBytes int64) *UserHandler {
	return &UserHandler{userService: userService, maxUploadBytes: maxUploadBytes}
}

// Me handles GET /api/user/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := currentUser(w, r)
	if !ok {
		return
	}
	h.writeProfile(w, r, id.UserID)
}

// Details handles GET /api/user/userDetails/{id}
func (h *UserHandler) Details(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUint(w, r, "id")
	if !ok {
		return
	}
	h.writeProfile(w, r, userID)
}

func (h *UserHandler) writeProfile(w http.ResponseWriter, r *http.Request, userID uint) {
	profile, err := h.userService.GetUserProfile(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, profile, "")
}

// List handles GET /api/user?q=&page=&limit=
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.ListUsers(r.Context(), r.URL.Query().Get("q"),
		queryInt(r, "page", 1), queryInt(r, "limit", 0))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, users, "")
}

// Update handles PUT /api/user/update
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req services.ProfileUpdate
	if !decodeJSON(w, r, &req) {
		return
	}
	profile, err := h.userService.UpdateUserProfile(r.Context(), id.UserID, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, profile, "Profile updated successfully")
}

// UpdateAvatar handles PUT /api/user/update/avatar (multipart field profilePicture).
func (h *UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "profilePicture", h.userService.UpdateAvatar)
}

// UpdateCover handles PUT /api/user/update/cover (multipart field coverImage).
func (h *UserHandler) UpdateCover(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "coverImage", h.userService.UpdateCover)
}

type imageUpdateFunc func(ctx context.Context, userID uint, file services.Attachment) (*models.UserProfile, error)

func (h *UserHandler) updateImage(w http.ResponseWriter, r *http.Request, field string, update imageUpdateFunc) {
	id, ok := currentUser(w, r)
	if !ok {
		return
	}
	if !parseForm(w, r, h.maxUploadBytes) {
		return
	}
	attachment, file, err := formAttachment(r, field)
	if err != nil {
		writeValidationError(w, field, "Invalid file")
		return
	}
	if file != nil {
		defer file.Close()
	}

	profile, err := update(r.Context(), id.UserID, attachment)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, profile, "Image updated successfully")
}

// Followers handles GET /api/user/{id}/followers
func (h *UserHandler) Followers(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUint(w, r, "id")
	if !ok {
		return
	}
	users, err := h.userService.Followers(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, users, "")
}

// Following handles GET /api/user/{id}/following
func (h *UserHandler) Following(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUint(w, r, "id")
	if !ok {
		return
	}
	users, err := h.userService.Following(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, users, "")
}
