package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/api/middleware"
	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/api/model"
	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/services"
	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/pkg/storage"
)

// DocumentHandler 处理文档管理相关的API请求
type DocumentHandler struct {
	fileStorage storage.Storage          // 文件存储服务
	outlineSvc  *services.OutlineService // 大纲服务
	logger      *logrus.Logger           // 日志记录器
}

// NewDocumentHandler 创建新的文档处理器
func NewDocumentHandler(fileStorage storage.Storage, outlineSvc *services.OutlineService) *DocumentHandler {
	return &DocumentHandler{
		fileStorage: fileStorage,
		outlineSvc:  outlineSvc,
		logger:      middleware.GetLogger(),
	}
}

// UploadDocument 处理文档上传请求
// POST /api/documents
func (h *DocumentHandler) UploadDocument(c *gin.Context) {
	var req model.DocumentUploadRequest
	if err := c.ShouldBind(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("missing file", err.Error()))
		return
	}

	filename := req.File.Filename
	if !isSupportedFileType(filename) {
		middleware.HandleError(c, middleware.NewValidationError(
			"unsupported file type, expected .pdf, .md, .markdown, .txt or .json"))
		return
	}

	file, err := req.File.Open()
	if err != nil {
		middleware.HandleError(c, middleware.NewInternalError("failed to open uploaded file", err.Error()))
		return
	}
	defer file.Close()

	info, err := h.fileStorage.Save(c.Request.Context(), file, filename)
	if err != nil {
		middleware.HandleError(c, middleware.NewInternalError("failed to save file", err.Error()))
		return
	}

	h.logger.WithFields(logrus.Fields{
		"file_id":  info.ID,
		"filename": info.Name,
		"size":     info.Size,
	}).Info("File uploaded")

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.DocumentUploadResponse{
		FileID:   info.ID,
		FileName: info.Name,
		Size:     info.Size,
		MimeType: info.MimeType,
	}))
}

// ListDocuments 列出所有已上传的文档
// GET /api/documents
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	files, err := h.fileStorage.List(c.Request.Context())
	if err != nil {
		middleware.HandleError(c, middleware.NewInternalError("failed to list documents", err.Error()))
		return
	}

	docs := make([]model.DocumentInfo, len(files))
	for i, f := range files {
		docs[i] = model.DocumentInfo{
			FileID:   f.ID,
			FileName: f.Name,
			Size:     f.Size,
			MimeType: f.MimeType,
		}
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.DocumentListResponse{
		Total:     len(docs),
		Documents: docs,
	}))
}

// DeleteDocument 删除文档
// DELETE /api/documents/:id
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	var req model.DocumentIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("missing document id"))
		return
	}

	if err := h.fileStorage.Delete(c.Request.Context(), req.ID); err != nil {
		if err == storage.ErrNotFound {
			middleware.HandleError(c, middleware.NewNotFoundError("document not found"))
			return
		}
		middleware.HandleError(c, middleware.NewInternalError("failed to delete document", err.Error()))
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.DocumentDeleteResponse{
		Success: true,
		FileID:  req.ID,
	}))
}

// GetOutline 分析已上传文档的标题大纲
// GET /api/documents/:id/outline
func (h *DocumentHandler) GetOutline(c *gin.Context) {
	var req model.DocumentIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("missing document id"))
		return
	}

	path, name, cleanup, err := materializeStoredFile(c.Request.Context(), h.fileStorage, req.ID)
	if err != nil {
		if err == storage.ErrNotFound {
			middleware.HandleError(c, middleware.NewNotFoundError("document not found"))
			return
		}
		middleware.HandleError(c, middleware.NewInternalError("failed to read document", err.Error()))
		return
	}
	defer cleanup()

	outline, blocks, err := h.outlineSvc.AnalyzeFile(path)
	if err != nil {
		middleware.HandleError(c, middleware.NewBusinessError("outline analysis failed", err.Error()))
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.OutlineResponse{
		FileName:   name,
		Title:      outline.Title,
		Outline:    outline.Outline,
		BlockCount: len(blocks),
	}))
}

// isSupportedFileType 检查文件扩展名是否受支持
func isSupportedFileType(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf", ".md", ".markdown", ".txt", ".json":
		return true
	default:
		return false
	}
}

// materializeStoredFile 把存储中的文件落到临时路径供提取层读取
// 返回的cleanup负责删除临时文件
func materializeStoredFile(ctx context.Context, fileStorage storage.Storage, id string) (string, string, func(), error) {
	files, err := fileStorage.List(ctx)
	if err != nil {
		return "", "", nil, err
	}

	var info *storage.FileInfo
	for i := range files {
		if files[i].ID == id {
			info = &files[i]
			break
		}
	}
	if info == nil {
		return "", "", nil, storage.ErrNotFound
	}

	rc, err := fileStorage.Get(ctx, id)
	if err != nil {
		return "", "", nil, err
	}
	defer rc.Close()

	tmpFile, err := os.CreateTemp("", "docintel_*"+filepath.Ext(info.Name))
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := io.Copy(tmpFile, rc); err != nil {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
		return "", "", nil, fmt.Errorf("failed to copy stored file: %w", err)
	}
	tmpFile.Close()

	cleanup := func() { os.Remove(tmpFile.Name()) }
	return tmpFile.Name(), info.Name, cleanup, nil
}
