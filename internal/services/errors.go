package services

import (
	"errors"
	"fmt"
)

// Kind classifies a service failure. The HTTP layer maps each kind to a
// status code and response category.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindUnauthenticated Kind = "unauthenticated"
	KindForbidden       Kind = "forbidden"
	KindNotFound        Kind = "not_found"
	KindConflict        Kind = "conflict"
)

// Error 是服务层返回给调用方的可分类错误。
type Error struct {
	Kind    Kind
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches on kind and message so that a copy with the same meaning
// compares equal to its sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message && e.Field == t.Field
}

func newError(kind Kind, field, message string) *Error {
	return &Error{Kind: kind, Field: field, Message: message}
}

// ValidationError builds a validation failure for a single field.
func ValidationError(field, message string) *Error {
	return newError(KindValidation, field, message)
}

// KindOf returns the kind of err, or "" when err is not a service error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

var (
	// 好友请求
	ErrFriendRequestSelf     = newError(KindValidation, "receiverId", "You cannot send a friend request to yourself")
	ErrReceiverNotFound      = newError(KindNotFound, "receiverId", "User not found")
	ErrDuplicatePending      = newError(KindConflict, "", "A friend request already exists between these users")
	ErrFriendRequestNotFound = newError(KindNotFound, "", "Friend request not found")
	ErrNotReceiver           = newError(KindForbidden, "", "Only the receiver can respond to this friend request")
	ErrNotSender             = newError(KindForbidden, "", "Only the sender can cancel this friend request")
	ErrAlreadyResolved       = newError(KindConflict, "", "Friend request has already been resolved")
	ErrNotFriends            = newError(KindNotFound, "", "You are not friends with this user")

	// 动态
	ErrPostNotFound       = newError(KindNotFound, "", "Post not found")
	ErrPostEmpty          = newError(KindValidation, "content", "Post must have content or an image")
	ErrPollOptionNotFound = newError(KindNotFound, "optionId", "Poll option not found")
	ErrAlreadyVoted       = newError(KindConflict, "", "You have already voted on this poll")
	ErrCommentNotFound    = newError(KindNotFound, "", "Comment not found")
	ErrStoryNotFound      = newError(KindNotFound, "", "Story not found")
	ErrStoryEmpty         = newError(KindValidation, "content", "Story must have content or an image")
	ErrNotOwner           = newError(KindForbidden, "", "You do not have permission to modify this resource")
	ErrUnsupportedMedia   = newError(KindValidation, "image", "Only JPEG, PNG, GIF and WebP images are allowed")

	// 用户
	ErrInvalidCredentials = newError(KindUnauthenticated, "", "Invalid credentials")
	ErrUserNotFound       = newError(KindNotFound, "", "User not found")
	ErrUsernameTaken      = newError(KindConflict, "username", "Username is already taken")
	ErrEmailTaken         = newError(KindConflict, "email", "Email is already registered")
	ErrPasswordLogin      = newError(KindUnauthenticated, "", "This account uses Google sign-in")
	ErrExternalIdentity   = newError(KindUnauthenticated, "", "Could not verify the external identity")
	ErrGoogleDisabled     = newError(KindNotFound, "", "Google sign-in is not configured")
)
