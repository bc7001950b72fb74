package apiserver

import (
	"net/http"

	"social-go/internal/models"
	"social-go/internal/services"
)

type StoryHandler struct {
	storyService   services.StoryService
	maxUploadBytes int64
}

func NewStoryHandler(ss services.StoryService, maxUploadBytes int64) *StoryHandler {
	return &StoryHandler{storyService: ss, maxUploadBytes: maxUploadBytes}
}

// Create handles POST /api/stories with either a JSON or a multipart body.
func (h *StoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := currentUser(w, r)
	if !ok {
		return
	}

	var input services.StoryCreate
	if isMultipart(r) {
		if !parseForm(w, r, h.maxUploadBytes) {
			return
		}
		fields := services.StoryFields{
			Content:         r.FormValue("content"),
			BackgroundColor: r.FormValue("backgroundColor"),
		}
		if urls := r.MultipartForm.Value["image"]; len(urls) > 0 {
			fields.ImageURL = urls[0]
		}
		attachment, file, err := formAttachment(r, "image")
		if err != nil {
			writeValidationError(w, "image", "Invalid file")
			return
		}
		if file != nil {
			defer file.Close()
			input = services.StoryWithAttachment{StoryFields: fields, File: attachment}
		} else {
			input = services.StoryTextOnly{StoryFields: fields}
		}
	} else {
		var fields services.StoryFields
		if !decodeJSON(w, r, &fields) {
			return
		}
		input = services.StoryTextOnly{StoryFields: fields}
	}

	story, err := h.storyService.CreateStory(r.Context(), id.UserID, input)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, story, "Story created successfully")
}

// Feed handles GET /api/stories
func (h *StoryHandler) Feed(w http.ResponseWriter, r *http.Request) {
	id, ok := currentUser(w, r)
	if !ok {
		return
	}
	stories, err := h.storyService.StoryFeed(r.Context(), id.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeStories(w, stories)
}

// ListByUser handles GET /api/stories/user/{userId}
func (h *StoryHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUint(w, r, "userId")
	if !ok {
		return
	}
	stories, err := h.storyService.ListUserStories(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeStories(w, stories)
}

func writeStories(w http.ResponseWriter, stories []*models.StoryView) {
	if stories == nil {
		stories = []*models.StoryView{}
	}
	writeSuccess(w, http.StatusOK, stories, "")
}

// Delete handles DELETE /api/stories/{id}
func (h *StoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := currentUser(w, r)
	if !ok {
		return
	}
	storyID, ok := pathUint(w, r, "id")
	if !ok {
		return
	}
	if err := h.storyService.DeleteStory(r.Context(), storyID, id.UserID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, nil, "Story deleted successfully")
}
