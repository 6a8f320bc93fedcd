package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RunStatus 批处理运行状态类型
type RunStatus string

const (
	// RunStatusPending 等待处理
	RunStatusPending RunStatus = "pending"
	// RunStatusProcessing 处理中
	RunStatusProcessing RunStatus = "processing"
	// RunStatusCompleted 处理完成
	RunStatusCompleted RunStatus = "completed"
	// RunStatusDegraded 完成但为降级结果（超时或嵌入不可用）
	RunStatusDegraded RunStatus = "degraded"
	// RunStatusFailed 处理失败
	RunStatusFailed RunStatus = "failed"
)

// DocStatus 文档处理状态类型
type DocStatus string

const (
	// DocStatusPending 等待处理
	DocStatusPending DocStatus = "pending"
	// DocStatusProcessing 处理中
	DocStatusProcessing DocStatus = "processing"
	// DocStatusCompleted 处理完成
	DocStatusCompleted DocStatus = "completed"
	// DocStatusFailed 处理失败
	DocStatusFailed DocStatus = "failed"
	// DocStatusSkipped 因批次超时未处理
	DocStatusSkipped DocStatus = "skipped"
)

// AnalysisRun 批处理运行记录
// 存储一次相关性分析批次的元数据和结果
type AnalysisRun struct {
	ID            string         `gorm:"primaryKey"`         // 运行ID，主键
	Persona       string         `gorm:"type:text;not null"` // 人物角色
	JobToBeDone   string         `gorm:"type:text;not null"` // 待完成任务
	Status        RunStatus      `gorm:"not null;index"`     // 运行状态
	DocumentCount int            `gorm:"not null;default:0"` // 输入文档数量
	Degraded      bool           `gorm:"not null;default:false"` // 是否降级
	DegradedReason string        `gorm:"type:text"`          // 降级原因
	Result        datatypes.JSON `gorm:"type:json"`          // 结果载荷，JSON格式
	Error         string         `gorm:"type:text"`          // 错误信息
	CreatedAt     time.Time      `gorm:"not null;index"`     // 创建时间
	UpdatedAt     time.Time      `gorm:"not null"`           // 更新时间
	CompletedAt   *time.Time     ``                          // 完成时间
}

// BeforeCreate GORM的钩子函数，创建记录前自动设置时间
func (r *AnalysisRun) BeforeCreate(tx *gorm.DB) (err error) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	r.UpdatedAt = time.Now()
	return nil
}

// BeforeUpdate GORM的钩子函数，更新记录前自动设置更新时间
func (r *AnalysisRun) BeforeUpdate(tx *gorm.DB) (err error) {
	r.UpdatedAt = time.Now()
	return nil
}

// TableName 明确指定表名
func (AnalysisRun) TableName() string {
	return "analysis_runs"
}

// DocumentRecord 单文档处理记录
// 跟踪批次内每个文档的处理状态和大纲结果
type DocumentRecord struct {
	ID           uint           `gorm:"primaryKey;autoIncrement"` // 主键ID
	RunID        string         `gorm:"not null;index"`           // 所属运行ID
	Document     string         `gorm:"not null"`                 // 文档名称
	Status       DocStatus      `gorm:"not null;index"`           // 处理状态
	SectionCount int            `gorm:"not null;default:0"`       // 切分出的章节数量
	Outline      datatypes.JSON `gorm:"type:json"`                // 大纲结果，JSON格式
	Error        string         `gorm:"type:text"`                // 错误信息
	CreatedAt    time.Time      `gorm:"not null"`                 // 创建时间
	UpdatedAt    time.Time      `gorm:"not null"`                 // 更新时间
}

// TableName 明确指定表名
func (DocumentRecord) TableName() string {
	return "document_records"
}
