package apiserver

import (
	"net/http"

	"social-go/internal/models"
	"social-go/internal/services"
)

type CommentHandler struct {
	commentService services.CommentService
}

func NewCommentHandler(cs services.CommentService) *CommentHandler {
	return &CommentHandler{commentService: cs}
}

type addCommentRequest struct {
	Text string `json:"text"`
}

// CommentLikeResponse is returned by the comment like toggle.
type CommentLikeResponse struct {
	Comment *models.CommentView `json:"comment"`
	Liked   bool                `json:"liked"`
}

// Add handles POST /api/posts/{id}/comments
func (h *CommentHandler) Add(w http.ResponseWriter, r *http.Request) {
	id, ok := currentUser(w, r)
	if !ok {
		return
	}
	postID, ok := pathUint(w, r, "id")
	if !ok {
		return
	}
	var req addCommentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	comment, err := h.commentService.AddComment(r.Context(), postID, id.UserID, req.Text)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, comment, "Comment added")
}

// List handles GET /api/posts/{id}/comments
func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	postID, ok := pathUint(w, r, "id")
	if !ok {
		return
	}
	comments, err := h.commentService.ListComments(r.Context(), postID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if comments == nil {
		comments = []*models.CommentView{}
	}
	writeSuccess(w, http.StatusOK, comments, "")
}

// ToggleLike handles POST /api/comments/{id}/like
func (h *CommentHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	id, ok := currentUser(w, r)
	if !ok {
		return
	}
	commentID, ok := pathUint(w, r, "id")
	if !ok {
		return
	}
	comment, liked, err := h.commentService.ToggleCommentLike(r.Context(), commentID, id.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, CommentLikeResponse{Comment: comment, Liked: liked}, "")
}

// Delete handles DELETE /api/comments/{id}
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := currentUser(w, r)
	if !ok {
		return
	}
	commentID, ok := pathUint(w, r, "id")
	if !ok {
		return
	}
	if err := h.commentService.DeleteComment(r.Context(), commentID, id.UserID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, nil, "Comment deleted")
}
