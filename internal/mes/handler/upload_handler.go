package handler

import (
	"time"

	"github.com/bitfantasy/nimo-mes/internal/mes/service"
	"github.com/gin-gonic/gin"
)

// UploadHandler 附件上传处理器
type UploadHandler struct {
	svc *service.AttachmentService
}

func NewUploadHandler(svc *service.AttachmentService) *UploadHandler {
	return &UploadHandler{svc: svc}
}

// Upload 上传检验照片/附件
// POST /api/v1/mes/uploads
func (h *UploadHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		BadRequest(c, "请上传文件")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	objectName, err := h.svc.Upload(c.Request.Context(), file, header.Filename, header.Size, contentType)
	if err != nil {
		InternalError(c, "上传失败: "+err.Error())
		return
	}

	Created(c, gin.H{
		"object_name": objectName,
		"file_name":   header.Filename,
		"file_size":   header.Size,
	})
}

// GetDownloadURL 获取附件临时下载链接
// GET /api/v1/mes/uploads/url?object_name=xxx
func (h *UploadHandler) GetDownloadURL(c *gin.Context) {
	objectName := c.Query("object_name")
	if objectName == "" {
		BadRequest(c, "缺少object_name参数")
		return
	}

	u, err := h.svc.PresignedURL(c.Request.Context(), objectName, 15*time.Minute)
	if err != nil {
		InternalError(c, "生成下载链接失败: "+err.Error())
		return
	}

	Success(c, gin.H{"url": u})
}
