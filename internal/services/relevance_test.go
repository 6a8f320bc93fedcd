package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/database"
	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/embedding"
	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/models"
	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/repository"
	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/vectordb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// financeDocBlocks 财务主题测试文档
func financeDocBlocks() []models.TextBlock {
	return []models.TextBlock{
		block(1, "Quarterly Financial Report", 24, true, 100),
		block(1, "Revenue Analysis", 18, true, 200),
		block(1, "Revenue increased 18% year over year. Subscription revenue was the primary growth driver. Revenue trends remain positive.", 12, false, 240),
		block(2, "Office Facilities", 18, true, 80),
		block(2, "The cafeteria menu updates include new vegetarian options. The office gym reopened in March.", 12, false, 120),
	}
}

// hrDocBlocks 人事主题测试文档
func hrDocBlocks() []models.TextBlock {
	return []models.TextBlock{
		block(1, "Employee Handbook", 24, true, 100),
		block(1, "Vacation Policy", 18, true, 200),
		block(1, "Employees accrue vacation days monthly. Unused days carry over to the next year.", 12, false, 240),
	}
}

func newRelevanceTestService(t *testing.T, opts ...RelevanceOption) *RelevanceService {
	engine, err := embedding.NewLocalClient()
	require.NoError(t, err)
	return NewRelevanceService(NewOutlineService(), engine, opts...)
}

// TestAnalyzeBatchRanking 测试批处理排名输出
func TestAnalyzeBatchRanking(t *testing.T) {
	svc := newRelevanceTestService(t)

	docs := []DocumentInput{
		{ID: "doc1", Name: "report.pdf", Blocks: financeDocBlocks()},
		{ID: "doc2", Name: "handbook.pdf", Blocks: hrDocBlocks()},
	}

	result, failures, err := svc.AnalyzeBatch(context.Background(), docs, "Investment Analyst", "Analyze revenue trends")
	require.NoError(t, err)
	assert.Empty(t, failures)
	require.NotNil(t, result)

	assert.Equal(t, []string{"report.pdf", "handbook.pdf"}, result.Metadata.Documents)
	assert.Equal(t, "Investment Analyst", result.Metadata.Persona)
	assert.Equal(t, "Analyze revenue trends", result.Metadata.JobToBeDone)
	assert.NotEmpty(t, result.Metadata.Timestamp)
	assert.False(t, result.Metadata.Degraded)
	assert.Empty(t, result.Metadata.Skipped)

	require.NotEmpty(t, result.ExtractedSections)

	// 排名为连续的1..N
	for i, sec := range result.ExtractedSections {
		assert.Equal(t, i+1, sec.ImportanceRank)
	}

	// 财务章节必须排在人事章节之前
	rankOf := func(title string) int {
		for _, sec := range result.ExtractedSections {
			if sec.SectionTitle == title {
				return sec.ImportanceRank
			}
		}
		t.Fatalf("section %q not found in ranking", title)
		return 0
	}
	assert.Less(t, rankOf("Revenue Analysis"), rankOf("Vacation Policy"))

	// 精炼文本不超过300字符
	require.NotEmpty(t, result.SubSectionAnalysis)
	for _, sub := range result.SubSectionAnalysis {
		assert.LessOrEqual(t, len([]rune(sub.RefinedText)), 300)
		assert.NotEmpty(t, sub.Document)
	}
}

// TestAnalyzeBatchIdempotence 重复运行产出相同的排名
func TestAnalyzeBatchIdempotence(t *testing.T) {
	svc := newRelevanceTestService(t)

	docs := []DocumentInput{
		{ID: "doc1", Name: "report.pdf", Blocks: financeDocBlocks()},
		{ID: "doc2", Name: "handbook.pdf", Blocks: hrDocBlocks()},
	}

	first, _, err := svc.AnalyzeBatch(context.Background(), docs, "Investment Analyst", "Analyze revenue trends")
	require.NoError(t, err)
	second, _, err := svc.AnalyzeBatch(context.Background(), docs, "Investment Analyst", "Analyze revenue trends")
	require.NoError(t, err)

	assert.Equal(t, first.ExtractedSections, second.ExtractedSections)
	assert.Equal(t, first.SubSectionAnalysis, second.SubSectionAnalysis)
}

// TestAnalyzeBatchEmptyInput 空批次正常返回
func TestAnalyzeBatchEmptyInput(t *testing.T) {
	svc := newRelevanceTestService(t)

	result, failures, err := svc.AnalyzeBatch(context.Background(), nil, "Analyst", "Review")
	require.NoError(t, err)
	assert.Empty(t, failures)
	assert.Empty(t, result.ExtractedSections)
	assert.Empty(t, result.SubSectionAnalysis)
}

// TestAnalyzeBatchFailureIsolation 单文档失败不影响其他文档
func TestAnalyzeBatchFailureIsolation(t *testing.T) {
	svc := newRelevanceTestService(t)

	docs := []DocumentInput{
		{ID: "doc1", Name: "report.pdf", Blocks: financeDocBlocks()},
		{ID: "doc2", Name: "missing.pdf", Path: "/nonexistent/missing.pdf"},
	}

	result, failures, err := svc.AnalyzeBatch(context.Background(), docs, "Investment Analyst", "Analyze revenue trends")
	require.NoError(t, err)

	require.Len(t, failures, 1)
	assert.Equal(t, "missing.pdf", failures[0].Document)
	assert.NotEmpty(t, failures[0].Reason)

	// 正常文档的章节仍然在结果中
	assert.NotEmpty(t, result.ExtractedSections)
	for _, sec := range result.ExtractedSections {
		assert.Equal(t, "report.pdf", sec.Document)
	}
}

// TestAnalyzeBatchKeywordOnly 无嵌入引擎时以关键词模式运行
func TestAnalyzeBatchKeywordOnly(t *testing.T) {
	svc := NewRelevanceService(NewOutlineService(), nil)

	docs := []DocumentInput{
		{ID: "doc1", Name: "report.pdf", Blocks: financeDocBlocks()},
	}

	result, failures, err := svc.AnalyzeBatch(context.Background(), docs, "Investment Analyst", "Analyze revenue trends")
	require.NoError(t, err)
	assert.Empty(t, failures)
	require.NotEmpty(t, result.ExtractedSections)
	assert.Equal(t, "Revenue Analysis", result.ExtractedSections[0].SectionTitle)
}

// TestAnalyzeBatchBudgetExceeded 预算耗尽时返回降级的部分结果
func TestAnalyzeBatchBudgetExceeded(t *testing.T) {
	svc := newRelevanceTestService(t, WithBatchBudget(time.Nanosecond))

	docs := []DocumentInput{
		{ID: "doc1", Name: "report.pdf", Blocks: financeDocBlocks()},
		{ID: "doc2", Name: "handbook.pdf", Blocks: hrDocBlocks()},
	}

	result, _, err := svc.AnalyzeBatch(context.Background(), docs, "Analyst", "Review documents")
	require.NoError(t, err)

	assert.True(t, result.Metadata.Degraded)
	assert.NotEmpty(t, result.Metadata.DegradedReason)
	// 未处理的文档被上报而不是静默丢弃
	assert.NotEmpty(t, result.Metadata.Skipped)
}

// TestAnalyzeBatchPersistence 批次结果和文档记录落库
func TestAnalyzeBatchPersistence(t *testing.T) {
	dbName := fmt.Sprintf("file:memdb_svc_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.AnalysisRun{}, &models.DocumentRecord{}))

	originalDB := database.DB
	database.DB = db
	defer func() { database.DB = originalDB }()

	repo := repository.NewRunRepositoryWithDB(db)
	svc := newRelevanceTestService(t, WithRunRepository(repo))

	docs := []DocumentInput{
		{ID: "doc1", Name: "report.pdf", Blocks: financeDocBlocks()},
	}

	_, _, err = svc.AnalyzeBatch(context.Background(), docs, "Investment Analyst", "Analyze revenue trends")
	require.NoError(t, err)

	runs, total, err := repo.List(0, 10, nil)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)

	run := runs[0]
	assert.Equal(t, models.RunStatusCompleted, run.Status)
	assert.NotEmpty(t, run.Result)

	recs, err := repo.GetDocumentRecords(run.ID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, models.DocStatusCompleted, recs[0].Status)
	assert.Greater(t, recs[0].SectionCount, 0)
}

// TestSearchSections 测试已索引章节的语义检索
func TestSearchSections(t *testing.T) {
	engine, err := embedding.NewLocalClient()
	require.NoError(t, err)

	store, err := vectordb.NewMemoryRepository(vectordb.Config{
		Dimension:    engine.Dimensions(),
		DistanceType: vectordb.Cosine,
	})
	require.NoError(t, err)

	svc := NewRelevanceService(NewOutlineService(), engine, WithVectorDB(store))

	docs := []DocumentInput{
		{ID: "doc1", Name: "report.pdf", Blocks: financeDocBlocks()},
	}
	_, _, err = svc.AnalyzeBatch(context.Background(), docs, "Investment Analyst", "Analyze revenue trends")
	require.NoError(t, err)

	count, err := store.Count()
	require.NoError(t, err)
	assert.Greater(t, count, 0)

	results, err := svc.SearchSections(context.Background(), "revenue growth", 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "report.pdf", results[0].Section.Document)

	// 未配置向量索引时报错
	bare := NewRelevanceService(NewOutlineService(), engine)
	_, err = bare.SearchSections(context.Background(), "anything", 5)
	assert.Error(t, err)
}
