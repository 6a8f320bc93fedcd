package repository

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/database"
	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) (*gorm.DB, func()) {
	// 使用唯一的内存数据库标识符
	dbName := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{})
	require.NoError(t, err, "Failed to open in-memory database")

	err = db.AutoMigrate(&models.AnalysisRun{}, &models.DocumentRecord{})
	require.NoError(t, err, "Failed to run migrations")

	originalDB := database.DB
	database.DB = db

	cleanup := func() {
		database.DB = originalDB
	}

	return db, cleanup
}

func newTestRun(id string) *models.AnalysisRun {
	return &models.AnalysisRun{
		ID:            id,
		Persona:       "Investment Analyst",
		JobToBeDone:   "Analyze revenue trends",
		Status:        models.RunStatusPending,
		DocumentCount: 2,
	}
}

func TestRunRepository_CreateAndGet(t *testing.T) {
	_, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewRunRepository()

	run := newTestRun("run-1")
	err := repo.Create(run)
	assert.NoError(t, err, "Run creation should succeed")

	saved, err := repo.GetByID("run-1")
	require.NoError(t, err, "Should be able to retrieve created run")
	assert.Equal(t, run.Persona, saved.Persona)
	assert.Equal(t, models.RunStatusPending, saved.Status)
	assert.False(t, saved.CreatedAt.IsZero(), "BeforeCreate hook should set timestamps")

	// 空ID不允许创建
	err = repo.Create(&models.AnalysisRun{})
	assert.Error(t, err)

	// 不存在的记录
	_, err = repo.GetByID("missing")
	assert.Error(t, err)
}

func TestRunRepository_UpdateStatus(t *testing.T) {
	_, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewRunRepository()
	require.NoError(t, repo.Create(newTestRun("run-1")))

	err := repo.UpdateStatus("run-1", models.RunStatusProcessing, "")
	assert.NoError(t, err)

	saved, err := repo.GetByID("run-1")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusProcessing, saved.Status)
	assert.Nil(t, saved.CompletedAt)

	// 失败状态记录错误信息并设置完成时间
	err = repo.UpdateStatus("run-1", models.RunStatusFailed, "extraction failed")
	assert.NoError(t, err)

	saved, err = repo.GetByID("run-1")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, saved.Status)
	assert.Equal(t, "extraction failed", saved.Error)
	assert.NotNil(t, saved.CompletedAt)

	// 不存在的记录
	err = repo.UpdateStatus("missing", models.RunStatusCompleted, "")
	assert.Error(t, err)
}

func TestRunRepository_SaveResult(t *testing.T) {
	_, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewRunRepository()
	require.NoError(t, repo.Create(newTestRun("run-1")))

	payload, err := json.Marshal(map[string]interface{}{"extracted_sections": []string{}})
	require.NoError(t, err)

	err = repo.SaveResult("run-1", payload, false, "")
	assert.NoError(t, err)

	saved, err := repo.GetByID("run-1")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, saved.Status)
	assert.False(t, saved.Degraded)
	assert.NotNil(t, saved.CompletedAt)
	assert.JSONEq(t, string(payload), string(saved.Result))

	// 降级结果
	require.NoError(t, repo.Create(newTestRun("run-2")))
	err = repo.SaveResult("run-2", payload, true, "batch timeout exceeded")
	assert.NoError(t, err)

	saved, err = repo.GetByID("run-2")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusDegraded, saved.Status)
	assert.True(t, saved.Degraded)
	assert.Equal(t, "batch timeout exceeded", saved.DegradedReason)
}

func TestRunRepository_List(t *testing.T) {
	_, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewRunRepository()
	for i := 0; i < 5; i++ {
		run := newTestRun(fmt.Sprintf("run-%d", i))
		if i%2 == 0 {
			run.Status = models.RunStatusCompleted
		}
		require.NoError(t, repo.Create(run))
	}

	// 分页
	runs, total, err := repo.List(0, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, runs, 3)

	// 状态过滤
	runs, total, err = repo.List(0, 10, map[string]interface{}{
		"status": models.RunStatusCompleted,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	for _, run := range runs {
		assert.Equal(t, models.RunStatusCompleted, run.Status)
	}
}

func TestRunRepository_DocumentRecords(t *testing.T) {
	_, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewRunRepository()
	require.NoError(t, repo.Create(newTestRun("run-1")))

	recs := []*models.DocumentRecord{
		{RunID: "run-1", Document: "report.pdf", Status: models.DocStatusCompleted, SectionCount: 12},
		{RunID: "run-1", Document: "notes.md", Status: models.DocStatusFailed, Error: "no text content"},
	}
	err := repo.SaveDocumentRecords(recs)
	assert.NoError(t, err)

	saved, err := repo.GetDocumentRecords("run-1")
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Equal(t, "report.pdf", saved[0].Document)
	assert.Equal(t, 12, saved[0].SectionCount)
	assert.Equal(t, models.DocStatusFailed, saved[1].Status)

	count, err := repo.CountDocumentRecords("run-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// 单条保存
	err = repo.SaveDocumentRecord(&models.DocumentRecord{
		RunID: "run-1", Document: "extra.txt", Status: models.DocStatusSkipped,
	})
	assert.NoError(t, err)

	count, err = repo.CountDocumentRecords("run-1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	// 缺少RunID
	err = repo.SaveDocumentRecord(&models.DocumentRecord{Document: "x"})
	assert.Error(t, err)
}

func TestRunRepository_Delete(t *testing.T) {
	_, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewRunRepository()
	require.NoError(t, repo.Create(newTestRun("run-1")))
	require.NoError(t, repo.SaveDocumentRecord(&models.DocumentRecord{
		RunID: "run-1", Document: "report.pdf", Status: models.DocStatusCompleted,
	}))

	err := repo.Delete("run-1")
	assert.NoError(t, err)

	_, err = repo.GetByID("run-1")
	assert.Error(t, err)

	count, err := repo.CountDocumentRecords("run-1")
	require.NoError(t, err)
	assert.Zero(t, count)
}
