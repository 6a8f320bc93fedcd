package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/database"
	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrRunNotFound 运行记录不存在
var ErrRunNotFound = errors.New("analysis run not found")

// runRepository 分析批次仓储实现
type runRepository struct {
	db  *gorm.DB        // 数据库连接
	ctx context.Context // 上下文，可用于事务或超时控制
}

// NewRunRepository 创建批次仓储实例
func NewRunRepository() RunRepository {
	return &runRepository{
		db:  database.MustDB(),
		ctx: context.Background(),
	}
}

// NewRunRepositoryWithDB 使用指定的数据库连接创建批次仓储实例
func NewRunRepositoryWithDB(db *gorm.DB) RunRepository {
	if db == nil {
		db = database.MustDB()
	}
	return &runRepository{
		db:  db,
		ctx: context.Background(),
	}
}

// Create 创建运行记录
func (r *runRepository) Create(run *models.AnalysisRun) error {
	if run.ID == "" {
		return errors.New("run ID cannot be empty")
	}

	return r.db.Create(run).Error
}

// Update 更新运行记录
func (r *runRepository) Update(run *models.AnalysisRun) error {
	if run.ID == "" {
		return errors.New("run ID cannot be empty")
	}

	return r.db.Save(run).Error
}

// GetByID 根据ID获取运行记录
func (r *runRepository) GetByID(id string) (*models.AnalysisRun, error) {
	var run models.AnalysisRun
	err := r.db.Where("id = ?", id).First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil, err
	}
	return &run, nil
}

// List 列出运行记录，支持分页和状态筛选
func (r *runRepository) List(offset, limit int, filters map[string]interface{}) ([]*models.AnalysisRun, int64, error) {
	var runs []*models.AnalysisRun
	var total int64

	query := r.db.Model(&models.AnalysisRun{})

	if filters != nil {
		if status, ok := filters["status"]; ok {
			switch s := status.(type) {
			case models.RunStatus:
				query = query.Where("status = ?", string(s))
			case string:
				if s != "" {
					query = query.Where("status = ?", s)
				}
			}
		}
		if persona, ok := filters["persona"].(string); ok && persona != "" {
			query = query.Where("persona LIKE ?", "%"+persona+"%")
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&runs).Error
	if err != nil {
		return nil, 0, err
	}

	return runs, total, nil
}

// Delete 删除运行记录及其文档记录
func (r *runRepository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", id).Delete(&models.DocumentRecord{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.AnalysisRun{}).Error
	})
}

// UpdateStatus 更新运行状态
func (r *runRepository) UpdateStatus(id string, status models.RunStatus, errorMsg string) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if errorMsg != "" {
		updates["error"] = errorMsg
	}
	if status == models.RunStatusCompleted || status == models.RunStatusDegraded || status == models.RunStatusFailed {
		now := time.Now()
		updates["completed_at"] = &now
	}

	result := r.db.Model(&models.AnalysisRun{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// SaveResult 保存运行结果并标记完成
// 降级结果以degraded状态落库，便于后续排查
func (r *runRepository) SaveResult(id string, result datatypes.JSON, degraded bool, degradedReason string) error {
	status := models.RunStatusCompleted
	if degraded {
		status = models.RunStatusDegraded
	}

	now := time.Now()
	updates := map[string]interface{}{
		"result":          result,
		"status":          status,
		"degraded":        degraded,
		"degraded_reason": degradedReason,
		"updated_at":      now,
		"completed_at":    &now,
	}

	res := r.db.Model(&models.AnalysisRun{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// SaveDocumentRecord 保存单个文档处理记录
func (r *runRepository) SaveDocumentRecord(rec *models.DocumentRecord) error {
	if rec.RunID == "" {
		return errors.New("document record run ID cannot be empty")
	}

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.UpdatedAt = time.Now()

	return r.db.Save(rec).Error
}

// SaveDocumentRecords 批量保存文档处理记录
func (r *runRepository) SaveDocumentRecords(recs []*models.DocumentRecord) error {
	if len(recs) == 0 {
		return nil
	}

	now := time.Now()
	for _, rec := range recs {
		if rec.RunID == "" {
			return errors.New("document record run ID cannot be empty")
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		rec.UpdatedAt = now
	}

	return r.db.Create(recs).Error
}

// GetDocumentRecords 获取批次的所有文档记录
func (r *runRepository) GetDocumentRecords(runID string) ([]*models.DocumentRecord, error) {
	var recs []*models.DocumentRecord
	err := r.db.Where("run_id = ?", runID).Order("id ASC").Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// CountDocumentRecords 统计批次的文档记录数量
func (r *runRepository) CountDocumentRecords(runID string) (int, error) {
	var count int64
	err := r.db.Model(&models.DocumentRecord{}).Where("run_id = ?", runID).Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}
