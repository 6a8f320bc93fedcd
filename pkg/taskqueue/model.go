package taskqueue

import (
	"encoding/json"
	"time"

	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/models"
)

// TaskType 任务类型
type TaskType string

const (
	// TaskOutlineExtract 单文档大纲提取任务
	TaskOutlineExtract TaskType = "outline_extract"
	// TaskRelevanceRank 文档集相关性排序任务
	TaskRelevanceRank TaskType = "relevance_rank"
)

// TaskStatus 任务状态
type TaskStatus string

const (
	// StatusPending 等待处理
	StatusPending TaskStatus = "pending"
	// StatusProcessing 处理中
	StatusProcessing TaskStatus = "processing"
	// StatusCompleted 已完成
	StatusCompleted TaskStatus = "completed"
	// StatusFailed 处理失败
	StatusFailed TaskStatus = "failed"
)

// Task 任务基础结构
type Task struct {
	ID          string          `json:"id"`           // 任务唯一标识符
	Type        TaskType        `json:"type"`         // 任务类型
	RunID       string          `json:"run_id"`       // 关联的分析运行ID
	Status      TaskStatus      `json:"status"`       // 任务状态
	Payload     json.RawMessage `json:"payload"`      // 任务载荷数据
	Result      json.RawMessage `json:"result"`       // 任务结果数据
	Error       string          `json:"error"`        // 错误信息（如果处理失败）
	CreatedAt   time.Time       `json:"created_at"`   // 创建时间
	UpdatedAt   time.Time       `json:"updated_at"`   // 更新时间
	StartedAt   *time.Time      `json:"started_at"`   // 开始处理时间
	CompletedAt *time.Time      `json:"completed_at"` // 完成时间
	Attempts    int             `json:"attempts"`     // 尝试次数
	MaxRetries  int             `json:"max_retries"`  // 最大重试次数
}

// OutlineExtractPayload 大纲提取任务载荷
type OutlineExtractPayload struct {
	FilePath string `json:"file_path"` // 文件存储路径
	FileName string `json:"file_name"` // 文件名
}

// OutlineExtractResult 大纲提取任务结果
type OutlineExtractResult struct {
	Title      string               `json:"title"`       // 文档标题
	Outline    []models.OutlineNode `json:"outline"`     // 标题层级大纲
	BlockCount int                  `json:"block_count"` // 提取到的文本块数量
}

// DocumentRef 批量分析中的文档引用
type DocumentRef struct {
	ID   string `json:"id"`   // 文档标识符
	Name string `json:"name"` // 文档名
	Path string `json:"path"` // 文件路径
}

// RelevanceRankPayload 相关性排序任务载荷
type RelevanceRankPayload struct {
	Persona     string        `json:"persona"`       // 角色描述
	JobToBeDone string        `json:"job_to_be_done"` // 任务描述
	Documents   []DocumentRef `json:"documents"`     // 文档集
}

// RelevanceRankResult 相关性排序任务结果
// 完整结果已由服务层持久化，这里只带回运行摘要
type RelevanceRankResult struct {
	RunID         string   `json:"run_id"`          // 分析运行ID
	Degraded      bool     `json:"degraded"`        // 是否降级
	SectionCount  int      `json:"section_count"`   // 入选章节数量
	SummaryCount  int      `json:"summary_count"`   // 生成摘要数量
	SkippedCount  int      `json:"skipped_count"`   // 预算内未处理的文档数
	FailedCount   int      `json:"failed_count"`    // 处理失败的文档数
	DocumentCount int      `json:"document_count"`  // 输入文档总数
	TopSections   []string `json:"top_sections"`    // 排名靠前的章节标题
}

// TaskInfo 任务的元信息
// 传递给客户端的简化任务视图
type TaskInfo struct {
	ID          string     `json:"id"`
	Type        TaskType   `json:"type"`
	RunID       string     `json:"run_id"`
	Status      TaskStatus `json:"status"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Progress    float64    `json:"progress"` // 处理进度（0-100）
}

// NewTaskInfo 从Task创建TaskInfo
func NewTaskInfo(task *Task) *TaskInfo {
	return &TaskInfo{
		ID:          task.ID,
		Type:        task.Type,
		RunID:       task.RunID,
		Status:      task.Status,
		Error:       task.Error,
		CreatedAt:   task.CreatedAt,
		StartedAt:   task.StartedAt,
		CompletedAt: task.CompletedAt,
		Progress:    taskProgress(task),
	}
}

// taskProgress 根据任务状态估算进度
func taskProgress(task *Task) float64 {
	switch task.Status {
	case StatusProcessing:
		return 50.0
	case StatusCompleted:
		return 100.0
	case StatusFailed:
		return 50.0
	default:
		return 0.0
	}
}

// TaskError 任务错误类型
type TaskError string

// Error 实现error接口
func (e TaskError) Error() string {
	return string(e)
}

// ErrTaskNotFound 任务未找到错误
var ErrTaskNotFound = TaskError("task not found")

// ErrTaskTimeout 任务超时错误
var ErrTaskTimeout = TaskError("task timed out")

// ErrInvalidPayload 无效的任务载荷错误
var ErrInvalidPayload = TaskError("invalid task payload")

// MarshalPayload 将任务载荷序列化为JSON
func MarshalPayload(payload interface{}) (json.RawMessage, error) {
	if payload == nil {
		return json.RawMessage("{}"), nil
	}
	return json.Marshal(payload)
}

// UnmarshalPayload 将JSON反序列化为任务载荷
func UnmarshalPayload(data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
