package repository

import (
	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/models"
	"gorm.io/datatypes"
)

// RunRepository 分析批次仓储接口
// 负责批次运行记录和文档处理记录的存储和检索
type RunRepository interface {
	// Create 创建运行记录
	Create(run *models.AnalysisRun) error

	// Update 更新运行记录
	Update(run *models.AnalysisRun) error

	// GetByID 根据ID获取运行记录
	GetByID(id string) (*models.AnalysisRun, error)

	// List 列出运行记录，支持分页和状态筛选
	List(offset, limit int, filters map[string]interface{}) ([]*models.AnalysisRun, int64, error)

	// Delete 删除运行记录及其文档记录
	Delete(id string) error

	// UpdateStatus 更新运行状态
	UpdateStatus(id string, status models.RunStatus, errorMsg string) error

	// SaveResult 保存运行结果并标记完成
	SaveResult(id string, result datatypes.JSON, degraded bool, degradedReason string) error

	// SaveDocumentRecord 保存单个文档处理记录
	SaveDocumentRecord(rec *models.DocumentRecord) error

	// SaveDocumentRecords 批量保存文档处理记录
	SaveDocumentRecords(recs []*models.DocumentRecord) error

	// GetDocumentRecords 获取批次的所有文档记录
	GetDocumentRecords(runID string) ([]*models.DocumentRecord, error)

	// CountDocumentRecords 统计批次的文档记录数量
	CountDocumentRecords(runID string) (int, error)
}
