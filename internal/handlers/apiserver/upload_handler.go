// internal/handlers/apiserver/upload_handler.go
package apiserver

import (
	"net/http"

	"go.uber.org/zap"

	"social-go/internal/services"
)

// UploadHandler 封装了文件上传相关的 HTTP 处理器方法。
type UploadHandler struct {
	userService    services.UserService
	maxUploadBytes int64
}

// NewUploadHandler 创建一个新的 UploadHandler 实例。
func NewUploadHandler(userService services.UserService, maxUploadBytes int64) *UploadHandler {
	return &UploadHandler{userService: userService, maxUploadBytes: maxUploadBytes}
}

// UploadFileHandler 处理 POST /api/upload，表单字段 "file" 为图片。
// 返回的 URL 可以作为动态或快拍 JSON 请求中的 image 字段。
func (h *UploadHandler) UploadFileHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := currentUser(w, r)
	if !ok {
		return
	}
	if !parseForm(w, r, h.maxUploadBytes) {
		return
	}

	attachment, file, err := formAttachment(r, "file")
	if err != nil {
		writeValidationError(w, "file", "Invalid file")
		return
	}
	if file != nil {
		defer file.Close()
		zap.L().Debug("upload received",
			zap.Uint("userId", id.UserID),
			zap.String("name", attachment.Filename),
			zap.Int64("size", attachment.Size))
	}

	info, err := h.userService.UploadImage(r.Context(), id.UserID, attachment)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, info, "File uploaded successfully")
}
