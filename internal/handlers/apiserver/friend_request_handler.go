package apiserver

import (
	"context"
	"net/http"

	"social-go/internal/models"
	"social-go/internal/services"
)

// FriendRequestHandler handles HTTP requests related to friend requests.
type FriendRequestHandler struct {
	friendService services.FriendRequestService
}

// NewFriendRequestHandler creates a new FriendRequestHandler.
func NewFriendRequestHandler(fs services.FriendRequestService) *FriendRequestHandler {
	return &FriendRequestHandler{friendService: fs}
}

// SendFriendRequestPayload defines the expected JSON body for sending a friend request.
type SendFriendRequestPayload struct {
	ReceiverID uint   `json:"receiverId"`
	Message    string `json:"message"`
}

// SendFriendRequestHandler handles POST /api/friend-requests
func (h *FriendRequestHandler) SendFriendRequestHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := currentUser(w, r)
	if !ok {
		return
	}

	var payload SendFriendRequestPayload
	if !decodeJSON(w, r, &payload) {
		return
	}
	if payload.ReceiverID == 0 {
		writeValidationError(w, "receiverId", "receiverId is required")
		return
	}

	req, err := h.friendService.SendFriendRequest(r.Context(), id.UserID, payload.ReceiverID, payload.Message)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, req, "Friend request sent")
}

// AcceptFriendRequestHandler handles POST /api/friend-requests/{id}/accept
func (h *FriendRequestHandler) AcceptFriendRequestHandler(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.friendService.AcceptFriendRequest, "Friend request accepted")
}

// RejectFriendRequestHandler handles POST /api/friend-requests/{id}/reject
func (h *FriendRequestHandler) RejectFriendRequestHandler(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.friendService.RejectFriendRequest, "Friend request rejected")
}

func (h *FriendRequestHandler) respond(
	w http.ResponseWriter,
	r *http.Request,
	transition func(ctx context.Context, receiverID, requestID uint) (*models.FriendRequest, error),
	message string,
) {
	id, ok := currentUser(w, r)
	if !ok {
		return
	}
	requestID, ok := pathUint(w, r, "id")
	if !ok {
		return
	}

	req, err := transition(r.Context(), id.UserID, requestID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, req, message)
}

// CancelFriendRequestHandler handles DELETE /api/friend-requests/{id}
func (h *FriendRequestHandler) CancelFriendRequestHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := currentUser(w, r)
	if !ok {
		return
	}
	requestID, ok := pathUint(w, r, "id")
	if !ok {
		return
	}
	if err := h.friendService.CancelFriendRequest(r.Context(), id.UserID, requestID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, nil, "Friend request cancelled")
}

// ListPendingRequestsHandler handles GET /api/friend-requests/pending
func (h *FriendRequestHandler) ListPendingRequestsHandler(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.friendService.ListPendingRequests)
}

// ListSentRequestsHandler handles GET /api/friend-requests/sent
func (h *FriendRequestHandler) ListSentRequestsHandler(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.friendService.ListSentRequests)
}

func (h *FriendRequestHandler) list(
	w http.ResponseWriter,
	r *http.Request,
	fetch func(ctx context.Context, userID uint) ([]*models.FriendRequestWithUser, error),
) {
	id, ok := currentUser(w, r)
	if !ok {
		return
	}
	requests, err := fetch(r.Context(), id.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if requests == nil {
		requests = []*models.FriendRequestWithUser{}
	}
	writeSuccess(w, http.StatusOK, requests, "")
}

// ListFriendsHandler handles GET /api/friends
func (h *FriendRequestHandler) ListFriendsHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := currentUser(w, r)
	if !ok {
		return
	}

	friendsList, err := h.friendService.GetFriendsList(r.Context(), id.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if friendsList == nil {
		friendsList = []*models.UserBasicInfo{} // 保证 JSON 输出 [] 而不是 null
	}
	writeSuccess(w, http.StatusOK, friendsList, "")
}

// UnfriendHandler handles DELETE /api/friends/{userId}
func (h *FriendRequestHandler) UnfriendHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := currentUser(w, r)
	if !ok {
		return
	}
	otherID, ok := pathUint(w, r, "userId")
	if !ok {
		return
	}
	if err := h.friendService.Unfriend(r.Context(), id.UserID, otherID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, nil, "Friend removed")
}
