package model

import (
	"encoding/json"
	"time"

	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/models"
	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/vectordb"
)

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`               // 响应状态码，0表示成功
	Message string      `json:"message"`            // 响应消息
	Data    interface{} `json:"data,omitempty"`     // 响应数据，可能为空
	TraceID string      `json:"trace_id,omitempty"` // 调用链追踪ID
}

// NewSuccessResponse 创建成功响应
func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Code:    0,
		Message: "success",
		Data:    data,
	}
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(code int, message string) *Response {
	return &Response{
		Code:    code,
		Message: message,
	}
}

// DocumentUploadResponse 文档上传响应
type DocumentUploadResponse struct {
	FileID   string `json:"file_id"`   // 文件ID
	FileName string `json:"filename"`  // 文件名
	Size     int64  `json:"size"`      // 文件大小(字节)
	MimeType string `json:"mime_type"` // MIME类型
}

// DocumentInfo 文档信息
type DocumentInfo struct {
	FileID   string `json:"file_id"`
	FileName string `json:"filename"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
}

// DocumentListResponse 文档列表响应
type DocumentListResponse struct {
	Total     int            `json:"total"`     // 总数量
	Documents []DocumentInfo `json:"documents"` // 文档列表
}

// DocumentDeleteResponse 文档删除响应
type DocumentDeleteResponse struct {
	Success bool   `json:"success"` // 是否成功
	FileID  string `json:"file_id"` // 文件ID
}

// OutlineResponse 大纲分析响应
type OutlineResponse struct {
	FileName   string               `json:"filename"`    // 文档名
	Title      string               `json:"title"`       // 文档标题
	Outline    []models.OutlineNode `json:"outline"`     // 标题层级大纲
	BlockCount int                  `json:"block_count"` // 提取到的文本块数量
}

// FailureInfo 单文档处理失败信息
type FailureInfo struct {
	Document string `json:"document"` // 文档名称
	Reason   string `json:"reason"`   // 失败原因
}

// RelevanceResponse 相关性分析响应
type RelevanceResponse struct {
	Result   *models.RelevanceResult `json:"result"`             // 分析结果
	Failures []FailureInfo           `json:"failures,omitempty"` // 处理失败的文档
}

// NewFailureInfos 转换文档失败信息
func NewFailureInfos(failures []models.DocumentFailure) []FailureInfo {
	if len(failures) == 0 {
		return nil
	}
	infos := make([]FailureInfo, len(failures))
	for i, f := range failures {
		infos[i] = FailureInfo{Document: f.Document, Reason: f.Reason}
	}
	return infos
}

// RunInfo 运行记录信息
type RunInfo struct {
	ID             string     `json:"id"`
	Status         string     `json:"status"`
	Persona        string     `json:"persona"`
	JobToBeDone    string     `json:"job_to_be_done"`
	DocumentCount  int        `json:"document_count"`
	Degraded       bool       `json:"degraded"`
	DegradedReason string     `json:"degraded_reason,omitempty"`
	Error          string     `json:"error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// NewRunInfo 从运行记录创建RunInfo
func NewRunInfo(run *models.AnalysisRun) RunInfo {
	return RunInfo{
		ID:             run.ID,
		Status:         string(run.Status),
		Persona:        run.Persona,
		JobToBeDone:    run.JobToBeDone,
		DocumentCount:  run.DocumentCount,
		Degraded:       run.Degraded,
		DegradedReason: run.DegradedReason,
		Error:          run.Error,
		CreatedAt:      run.CreatedAt,
		CompletedAt:    run.CompletedAt,
	}
}

// DocumentRecordInfo 批次内单文档处理记录信息
type DocumentRecordInfo struct {
	Document     string `json:"document"`
	Status       string `json:"status"`
	SectionCount int    `json:"section_count"`
	Error        string `json:"error,omitempty"`
}

// RunStatusResponse 运行状态查询响应
type RunStatusResponse struct {
	RunInfo
	Result    json.RawMessage      `json:"result,omitempty"`    // 完整结果载荷
	Documents []DocumentRecordInfo `json:"documents,omitempty"` // 文档处理记录
}

// RunListResponse 运行记录列表响应
type RunListResponse struct {
	Total    int64     `json:"total"`     // 总记录数
	Page     int       `json:"page"`      // 当前页码
	PageSize int       `json:"page_size"` // 每页大小
	Runs     []RunInfo `json:"runs"`      // 运行记录列表
}

// SearchResultInfo 章节检索结果条目
type SearchResultInfo struct {
	Document     string  `json:"document"`      // 文档名
	SectionTitle string  `json:"section_title"` // 章节标题
	Page         int     `json:"page"`          // 起始页码
	Score        float32 `json:"score"`         // 相似度分数
	Text         string  `json:"text"`          // 章节正文片段
}

// SearchResponse 章节检索响应
type SearchResponse struct {
	Query   string             `json:"query"`   // 检索文本
	Results []SearchResultInfo `json:"results"` // 检索结果
}

// NewSearchResults 将向量检索结果转换为响应条目
func NewSearchResults(results []vectordb.SearchResult) []SearchResultInfo {
	infos := make([]SearchResultInfo, len(results))
	for i, r := range results {
		text := r.Section.Text
		if len(text) > 500 {
			text = text[:500]
		}
		infos[i] = SearchResultInfo{
			Document:     r.Section.Document,
			SectionTitle: r.Section.Title,
			Page:         r.Section.Page,
			Score:        r.Score,
			Text:         text,
		}
	}
	return infos
}

// EnqueueResponse 任务入队响应
type EnqueueResponse struct {
	TaskID string `json:"task_id"` // 任务ID
	RunID  string `json:"run_id"`  // 关联的运行ID
}
