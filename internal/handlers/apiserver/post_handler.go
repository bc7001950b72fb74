package apiserver

import (
	"net/http"

	"social-go/internal/models"
	"social-go/internal/services"
)

// PostHandler 封装了动态、点赞、投票与信息流的 HTTP 处理器方法。
type PostHandler struct {
	postService    services.PostService
	feedService    services.FeedService
	maxUploadBytes int64
}

func NewPostHandler(ps services.PostService, fs services.FeedService, maxUploadBytes int64) *PostHandler {
	return &PostHandler{postService: ps, feedService: fs, maxUploadBytes: maxUploadBytes}
}

// createPostRequest is the JSON body of POST /posts. pollData is accepted
// alongside pollOptions for older clients.
type createPostRequest struct {
	services.PostFields
	PollData *pollData `json:"pollData"`
}

// LikeResponse is returned by the like toggle.
type LikeResponse struct {
	Post  *models.PostView `json:"post"`
	Liked bool             `json:"liked"`
}

// Create handles POST /api/posts. A multipart body carries the image file
// under "image"; a JSON body may reference an already uploaded image URL.
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := currentUser(w, r)
	if !ok {
		return
	}

	var input services.PostCreate
	if isMultipart(r) {
		if !parseForm(w, r, h.maxUploadBytes) {
			return
		}
		fields, ok := postFieldsFromForm(w, r)
		if !ok {
			return
		}
		attachment, file, err := formAttachment(r, "image")
		if err != nil {
			writeValidationError(w, "image", "Invalid file")
			return
		}
		if file != nil {
			defer file.Close()
			input = services.WithAttachment{PostFields: fields, File: attachment}
		} else {
			input = services.TextOnly{PostFields: fields}
		}
	} else {
		var req createPostRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if len(req.PollOptions) == 0 && req.PollData != nil {
			req.PollOptions = req.PollData.Options
		}
		input = services.TextOnly{PostFields: req.PostFields}
	}

	post, err := h.postService.CreatePost(r.Context(), id.UserID, input)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, post, "Post created successfully")
}

func postFieldsFromForm(w http.ResponseWriter, r *http.Request) (services.PostFields, bool) {
	fields := services.PostFields{
		Content:         r.FormValue("content"),
		BackgroundColor: r.FormValue("backgroundColor"),
		Feeling:         r.FormValue("feeling"),
	}
	// 文本字段 image 表示已上传图片的 URL
	if urls := r.MultipartForm.Value["image"]; len(urls) > 0 {
		fields.ImageURL = urls[0]
	}

	hashtags, err := formList(r, "hashtags")
	if err != nil {
		writeValidationError(w, "hashtags", "Invalid hashtags")
		return fields, false
	}
	fields.Hashtags = hashtags

	options, err := formPollOptions(r)
	if err != nil {
		writeValidationError(w, "pollOptions", "Invalid poll data")
		return fields, false
	}
	fields.PollOptions = options
	return fields, true
}

// Get handles GET /api/posts/{id}
func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	postID, ok := pathUint(w, r, "id")
	if !ok {
		return
	}
	post, err := h.feedService.GetPost(r.Context(), postID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, post, "")
}

// Feed handles GET /api/posts/feed?page=&limit=
func (h *PostHandler) Feed(w http.ResponseWriter, r *http.Request) {
	id, ok := currentUser(w, r)
	if !ok {
		return
	}
	page, err := h.feedService.ComposeFeed(r.Context(), id.UserID, queryInt(r, "page", 1), queryInt(r, "limit", 0))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, page, "")
}

// ListByUser handles GET /api/posts/user/{userId}
func (h *PostHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	authorID, ok := pathUint(w, r, "userId")
	if !ok {
		return
	}
	page, err := h.feedService.ListUserPosts(r.Context(), authorID, queryInt(r, "page", 1), queryInt(r, "limit", 0))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, page, "")
}

// Update handles PUT /api/posts/{id}
func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := currentUser(w, r)
	if !ok {
		return
	}
	postID, ok := pathUint(w, r, "id")
	if !ok {
		return
	}
	var req services.PostUpdate
	if !decodeJSON(w, r, &req) {
		return
	}
	post, err := h.postService.UpdatePost(r.Context(), postID, id.UserID, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, post, "Post updated successfully")
}

// Delete handles DELETE /api/posts/{id}
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := currentUser(w, r)
	if !ok {
		return
	}
	postID, ok := pathUint(w, r, "id")
	if !ok {
		return
	}
	if err := h.postService.DeletePost(r.Context(), postID, id.UserID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, nil, "Post deleted successfully")
}

// ToggleLike handles POST /api/posts/{id}/like
func (h *PostHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	id, ok := currentUser(w, r)
	if !ok {
		return
	}
	postID, ok := pathUint(w, r, "id")
	if !ok {
		return
	}
	post, liked, err := h.postService.ToggleLike(r.Context(), postID, id.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	message := "Post unliked"
	if liked {
		message = "Post liked"
	}
	writeSuccess(w, http.StatusOK, LikeResponse{Post: post, Liked: liked}, message)
}

// Likers handles GET /api/posts/{id}/likers
func (h *PostHandler) Likers(w http.ResponseWriter, r *http.Request) {
	postID, ok := pathUint(w, r, "id")
	if !ok {
		return
	}
	users, err := h.postService.ListLikers(r.Context(), postID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, users, "")
}

// Vote handles POST /api/posts/{id}/poll/{optionId}/vote
func (h *PostHandler) Vote(w http.ResponseWriter, r *http.Request) {
	id, ok := currentUser(w, r)
	if !ok {
		return
	}
	postID, ok := pathUint(w, r, "id")
	if !ok {
		return
	}
	optionID, ok := pathUint(w, r, "optionId")
	if !ok {
		return
	}
	post, err := h.postService.Vote(r.Context(), postID, optionID, id.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, post, "Vote recorded")
}

// PollResults handles GET /api/posts/{id}/poll/results
func (h *PostHandler) PollResults(w http.ResponseWriter, r *http.Request) {
	postID, ok := pathUint(w, r, "id")
	if !ok {
		return
	}
	results, err := h.postService.PollResults(r.Context(), postID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, results, "")
}
