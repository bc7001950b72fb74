package apiserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"social-go/internal/middleware"
	"social-go/internal/services"
)

// successResponse 是成功响应的统一外层结构。
type successResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse 是 API 错误响应的通用结构体。
type ErrorResponse struct {
	Success  bool   `json:"success"`
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

const categoryInternal = "internal"

// writeJSONResponse 是一个辅助函数，用于发送 JSON 响应。
func writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// 头部已发送，只能记录
		zap.L().Warn("encode json response", zap.Error(err))
	}
}

func writeSuccess(w http.ResponseWriter, statusCode int, data any, message string) {
	writeJSONResponse(w, statusCode, successResponse{Success: true, Data: data, Message: message})
}

// writeJSONError 发送 JSON 格式的错误响应。
func writeJSONError(w http.ResponseWriter, statusCode int, category, field, message string) {
	writeJSONResponse(w, statusCode, ErrorResponse{
		Success:  false,
		Category: category,
		Message:  message,
		Field:    field,
	})
}

func writeValidationError(w http.ResponseWriter, field, message string) {
	writeJSONError(w, http.StatusBadRequest, string(services.KindValidation), field, message)
}

// writeServiceError maps a service error to its status code. Anything that
// is not a *services.Error is logged and reported as a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var se *services.Error
	if !errors.As(err, &se) {
		zap.L().Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, categoryInternal, "", "Internal server error")
		return
	}
	writeJSONError(w, statusForKind(se.Kind), string(se.Kind), se.Field, se.Message)
}

func statusForKind(kind services.Kind) int {
	switch kind {
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindUnauthenticated:
		return http.StatusUnauthorized
	case services.KindForbidden:
		return http.StatusForbidden
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeValidationError(w, "", "Invalid request body")
		return false
	}
	return true
}

// pathUint parses a numeric route variable. Routes constrain the variables
// to digits, so a failure here means an out-of-range value.
func pathUint(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	v, err := strconv.ParseUint(mux.Vars(r)[name], 10, 0)
	if err != nil || v == 0 {
		writeValidationError(w, name, "Invalid "+name)
		return 0, false
	}
	return uint(v), true
}

func queryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return def
	}
	return v
}

// currentUser returns the authenticated caller. Protected routes always run
// behind AuthMiddleware, so a missing identity is answered with 401.
func currentUser(w http.ResponseWriter, r *http.Request) (*middleware.Identity, bool) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, string(services.KindUnauthenticated), "", "Authentication required")
		return nil, false
	}
	return id, true
}
