package model

import (
	"mime/multipart"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidations 在gin的校验引擎上注册自定义校验规则
func RegisterValidations() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterStructValidation(validateDocumentRef, RelevanceDocumentRef{})
	}
}

// validateDocumentRef 要求文档引用至少给出FileID或Path之一
func validateDocumentRef(sl validator.StructLevel) {
	ref := sl.Current().Interface().(RelevanceDocumentRef)
	if ref.FileID == "" && ref.Path == "" {
		sl.ReportError(ref.FileID, "FileID", "file_id", "docref", "")
	}
}

// PaginationRequest 分页请求参数
type PaginationRequest struct {
	Page     int `form:"page" json:"page" binding:"omitempty,min=1"`           // 当前页码，从1开始
	PageSize int `form:"page_size" json:"page_size" binding:"omitempty,min=1"` // 每页记录数
}

// GetPage 获取页码，默认为1
func (p *PaginationRequest) GetPage() int {
	if p.Page <= 0 {
		return 1
	}
	return p.Page
}

// GetPageSize 获取每页记录数，默认为10，最大为100
func (p *PaginationRequest) GetPageSize() int {
	if p.PageSize <= 0 {
		return 10
	}
	if p.PageSize > 100 {
		return 100
	}
	return p.PageSize
}

// DocumentUploadRequest 文档上传请求
type DocumentUploadRequest struct {
	File *multipart.FileHeader `form:"file" binding:"required"` // 文件对象
}

// DocumentIDRequest 按ID定位文档的请求
type DocumentIDRequest struct {
	ID string `uri:"id" binding:"required"` // 文档ID
}

// RelevanceDocumentRef 相关性分析请求中的文档引用
// FileID指向已上传的存储文件，Path指向服务可见的文件路径，二者给一个即可
type RelevanceDocumentRef struct {
	FileID string `json:"file_id" binding:"omitempty"` // 存储文件ID
	Path   string `json:"path" binding:"omitempty"`    // 文件路径
	Name   string `json:"name" binding:"omitempty"`    // 展示用文档名
}

// RelevanceRequest 相关性分析请求
type RelevanceRequest struct {
	Persona     string                 `json:"persona" binding:"required"`        // 角色描述
	JobToBeDone string                 `json:"job_to_be_done" binding:"required"` // 任务描述
	Documents   []RelevanceDocumentRef `json:"documents" binding:"required,min=1"`
}

// SearchRequest 章节检索请求
type SearchRequest struct {
	Query      string `json:"query" binding:"required"`               // 检索文本
	MaxResults int    `json:"max_results" binding:"omitempty,min=1"` // 返回结果数量上限
}

// RunListRequest 运行记录列表请求
type RunListRequest struct {
	PaginationRequest
	Status  string `form:"status" json:"status" binding:"omitempty"`   // 运行状态过滤
	Persona string `form:"persona" json:"persona" binding:"omitempty"` // 角色模糊过滤
}

// RunIDRequest 按ID定位运行记录的请求
type RunIDRequest struct {
	ID string `uri:"id" binding:"required"` // 运行ID
}

// TaskIDRequest 按ID定位任务的请求
type TaskIDRequest struct {
	ID string `uri:"id" binding:"required"` // 任务ID
}

// TaskWaitRequest 任务等待请求参数
type TaskWaitRequest struct {
	TimeoutSeconds int `form:"timeout" binding:"omitempty,min=1"` // 等待超时秒数
}
